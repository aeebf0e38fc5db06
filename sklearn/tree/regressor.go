package tree

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

// TypeDecisionTreeRegressor is the type reference registered for DecisionTreeRegressor.
const TypeDecisionTreeRegressor = "tree.DecisionTreeRegressor"

func init() {
	gob.Register(&DecisionTreeRegressor{})
	model.RegisterType(TypeDecisionTreeRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultRegressorParams()
		if err := p.Decode("DecisionTreeRegressor", &cfg); err != nil {
			return nil, err
		}
		if err := CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewDecisionTreeRegressor(cfg), nil
	})
}

// RegressorParams holds the hyperparameters of DecisionTreeRegressor.
type RegressorParams struct {
	Criterion       string      `mapstructure:"criterion" validate:"oneof=squared_error friedman_mse"`
	Splitter        string      `mapstructure:"splitter" validate:"oneof=best random"`
	MaxDepth        int         `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int         `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	RandomState     int64       `mapstructure:"random_state"`
}

// DefaultRegressorParams returns scikit-learn's defaults.
func DefaultRegressorParams() RegressorParams {
	return RegressorParams{
		Criterion:       string(SquaredError),
		Splitter:        SplitBest,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// DecisionTreeRegressor is a CART regression tree minimizing squared error.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	Params RegressorParams

	Tree *Tree
}

// NewDecisionTreeRegressor creates an unfitted regressor.
func NewDecisionTreeRegressor(params RegressorParams) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(dt.Params)
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	maxFeatures, err := ResolveMaxFeatures(dt.Params.MaxFeatures, nFeatures)
	if err != nil {
		return err
	}
	weights := make([]float64, nSamples)
	for i := range weights {
		weights[i] = 1
	}
	dt.Tree = Grow(model.Rows(X), model.Column(y), weights, GrowConfig{
		Criterion:       SquaredError,
		Splitter:        dt.Params.Splitter,
		MaxDepth:        dt.Params.MaxDepth,
		MinSamplesSplit: dt.Params.MinSamplesSplit,
		MinSamplesLeaf:  dt.Params.MinSamplesLeaf,
		MaxFeatures:     maxFeatures,
	}, model.NewRand(dt.Params.RandomState))

	dt.SetDimensions(nFeatures, nSamples)
	dt.SetFitted()
	return nil
}

// Predict returns the mean target of the reached leaf.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	if err := dt.CheckFeatures("DecisionTreeRegressor.Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = dt.Tree.Predict(row)[0]
	}
	return model.ColumnVector(out), nil
}

// Score returns R².
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.R2(dt, X, y)
}

// FeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() []float64 {
	if dt.Tree == nil {
		return nil
	}
	return Normalize(dt.Tree.Importances())
}
