package tree

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

// TypeDecisionTreeClassifier is the type reference registered for DecisionTreeClassifier.
const TypeDecisionTreeClassifier = "tree.DecisionTreeClassifier"

func init() {
	gob.Register(&DecisionTreeClassifier{})
	model.RegisterType(TypeDecisionTreeClassifier, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultClassifierParams()
		if err := p.Decode("DecisionTreeClassifier", &cfg); err != nil {
			return nil, err
		}
		if err := CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewDecisionTreeClassifier(cfg), nil
	})
}

// ClassifierParams holds the hyperparameters of DecisionTreeClassifier.
type ClassifierParams struct {
	Criterion       string      `mapstructure:"criterion" validate:"oneof=gini entropy log_loss"`
	Splitter        string      `mapstructure:"splitter" validate:"oneof=best random"`
	MaxDepth        int         `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int         `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	ClassWeight     string      `mapstructure:"class_weight" validate:"omitempty,oneof=balanced none"`
	RandomState     int64       `mapstructure:"random_state"`
}

// DefaultClassifierParams returns scikit-learn's defaults (max_depth 0 = unlimited).
func DefaultClassifierParams() ClassifierParams {
	return ClassifierParams{
		Criterion:       string(Gini),
		Splitter:        SplitBest,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// ClassificationCriterion maps a criterion name onto its impurity measure.
func ClassificationCriterion(name string) Criterion {
	if name == "entropy" || name == "log_loss" {
		return Entropy
	}
	return Gini
}

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	model.BaseEstimator

	Params ClassifierParams

	ClassLabels []float64
	Tree        *Tree
}

// NewDecisionTreeClassifier creates an unfitted classifier.
func NewDecisionTreeClassifier(params ClassifierParams) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return model.ParamsOf(dt.Params)
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return dt.ClassLabels
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, encoded := model.EncodeLabels(model.Column(y))
	weights, err := model.ClassWeights(dt.Params.ClassWeight, encoded, len(classes))
	if err != nil {
		return err
	}
	maxFeatures, err := ResolveMaxFeatures(dt.Params.MaxFeatures, nFeatures)
	if err != nil {
		return err
	}

	target := make([]float64, nSamples)
	for i, c := range encoded {
		target[i] = float64(c)
	}
	dt.ClassLabels = classes
	dt.Tree = Grow(model.Rows(X), target, weights, GrowConfig{
		Criterion:       ClassificationCriterion(dt.Params.Criterion),
		Splitter:        dt.Params.Splitter,
		MaxDepth:        dt.Params.MaxDepth,
		MinSamplesSplit: dt.Params.MinSamplesSplit,
		MinSamplesLeaf:  dt.Params.MinSamplesLeaf,
		MaxFeatures:     maxFeatures,
		NClasses:        len(classes),
	}, model.NewRand(dt.Params.RandomState))

	dt.SetDimensions(nFeatures, nSamples)
	dt.SetFitted()
	return nil
}

// PredictProba returns the class distribution of the leaf each sample reaches.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := dt.CheckFeatures("DecisionTreeClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	proba := mat.NewDense(len(rows), len(dt.ClassLabels), nil)
	for i, row := range rows {
		proba.SetRow(i, dt.Tree.Predict(row))
	}
	return proba, nil
}

// Predict returns the majority class of the reached leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.DecodeClasses(dt.ClassLabels, model.ArgmaxRows(proba)), nil
}

// Score returns the mean accuracy.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	return model.AccuracyScore(dt, X, y)
}

// FeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	if dt.Tree == nil {
		return nil
	}
	return Normalize(dt.Tree.Importances())
}

// Depth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) Depth() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.Depth()
}

// NLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) NLeaves() int {
	if dt.Tree == nil {
		return 0
	}
	return dt.Tree.NLeaves()
}
