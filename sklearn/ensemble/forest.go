// Package ensemble provides bagged tree forests and gradient-boosted trees.
package ensemble

import (
	"encoding/gob"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/sklearn/tree"
)

const TypeRandomForestClassifier = "ensemble.RandomForestClassifier"

func init() {
	gob.Register(&RandomForestClassifier{})
	model.RegisterType(TypeRandomForestClassifier, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultRandomForestClassifierParams()
		if err := p.Decode("RandomForestClassifier", &cfg); err != nil {
			return nil, err
		}
		if err := tree.CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewRandomForestClassifier(cfg), nil
	})
}

// growForest fits nTrees trees concurrently. Per-tree seeds are drawn up front
// from seed so the result does not depend on scheduling. With bootstrap each
// tree sees a resample of the rows, expressed as integer sample weights.
func growForest(X [][]float64, y, weight []float64, nTrees, nJobs int, bootstrap bool, seed int64, cfg tree.GrowConfig) ([]*tree.Tree, error) {
	rng := model.NewRand(seed)
	seeds := make([]int64, nTrees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*tree.Tree, nTrees)
	err := parallel.ForEach(nTrees, nJobs, func(t int) error {
		r := rand.New(rand.NewSource(seeds[t]))
		w := weight
		if bootstrap {
			w = make([]float64, len(weight))
			for range weight {
				i := r.Intn(len(weight))
				w[i] += weight[i]
			}
		}
		trees[t] = tree.Grow(X, y, w, cfg, r)
		return nil
	})
	return trees, err
}

// forestImportances averages the normalized importances of every tree.
func forestImportances(trees []*tree.Tree, nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	for _, t := range trees {
		for j, v := range tree.Normalize(t.Importances()) {
			imp[j] += v
		}
	}
	return tree.Normalize(imp)
}

// RandomForestClassifierParams holds the hyperparameters of RandomForestClassifier.
type RandomForestClassifierParams struct {
	NEstimators     int         `mapstructure:"n_estimators" validate:"gte=1"`
	Criterion       string      `mapstructure:"criterion" validate:"oneof=gini entropy log_loss"`
	MaxDepth        int         `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int         `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	Bootstrap       bool        `mapstructure:"bootstrap"`
	ClassWeight     string      `mapstructure:"class_weight" validate:"omitempty,oneof=balanced none"`
	NJobs           int         `mapstructure:"n_jobs"`
	RandomState     int64       `mapstructure:"random_state"`
	Verbose         int         `mapstructure:"verbose"`
}

// DefaultRandomForestClassifierParams returns scikit-learn's defaults.
func DefaultRandomForestClassifierParams() RandomForestClassifierParams {
	return RandomForestClassifierParams{
		NEstimators:     100,
		Criterion:       string(tree.Gini),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
	}
}

// RandomForestClassifier averages the class distributions of bootstrapped CART trees.
type RandomForestClassifier struct {
	model.BaseEstimator

	Params RandomForestClassifierParams

	ClassLabels []float64
	Estimators  []*tree.Tree
}

// NewRandomForestClassifier creates an unfitted forest.
func NewRandomForestClassifier(params RandomForestClassifierParams) *RandomForestClassifier {
	return &RandomForestClassifier{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return model.ParamsOf(rf.Params)
}

// Classes returns the sorted class labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []float64 {
	return rf.ClassLabels
}

// Fit grows n_estimators trees on X and y.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes, encoded := model.EncodeLabels(model.Column(y))
	weights, err := model.ClassWeights(rf.Params.ClassWeight, encoded, len(classes))
	if err != nil {
		return err
	}
	maxFeatures, err := tree.ResolveMaxFeatures(rf.Params.MaxFeatures, nFeatures)
	if err != nil {
		return err
	}
	target := make([]float64, nSamples)
	for i, c := range encoded {
		target[i] = float64(c)
	}

	trees, err := growForest(model.Rows(X), target, weights,
		rf.Params.NEstimators, rf.Params.NJobs, rf.Params.Bootstrap, rf.Params.RandomState,
		tree.GrowConfig{
			Criterion:       tree.ClassificationCriterion(rf.Params.Criterion),
			Splitter:        tree.SplitBest,
			MaxDepth:        rf.Params.MaxDepth,
			MinSamplesSplit: rf.Params.MinSamplesSplit,
			MinSamplesLeaf:  rf.Params.MinSamplesLeaf,
			MaxFeatures:     maxFeatures,
			NClasses:        len(classes),
		})
	if err != nil {
		return err
	}
	rf.ClassLabels = classes
	rf.Estimators = trees
	rf.SetDimensions(nFeatures, nSamples)
	rf.SetFitted()
	return nil
}

// PredictProba returns the mean class distribution over the trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := rf.CheckFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	nClasses := len(rf.ClassLabels)
	proba := mat.NewDense(len(rows), nClasses, nil)
	parallel.Parallelize(len(rows), rf.Params.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			acc := make([]float64, nClasses)
			for _, t := range rf.Estimators {
				for k, v := range t.Predict(rows[i]) {
					acc[k] += v
				}
			}
			for k := range acc {
				acc[k] /= float64(len(rf.Estimators))
			}
			proba.SetRow(i, acc)
		}
	})
	return proba, nil
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.DecodeClasses(rf.ClassLabels, model.ArgmaxRows(proba)), nil
}

// Score returns the mean accuracy.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	return model.AccuracyScore(rf, X, y)
}

// FeatureImportances returns the mean decrease in impurity per feature.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if rf.Estimators == nil {
		return nil
	}
	return forestImportances(rf.Estimators, rf.NFeatures)
}
