package ensemble

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/sklearn/tree"
)

const (
	TypeRandomForestRegressor = "ensemble.RandomForestRegressor"
	TypeExtraTreesRegressor   = "ensemble.ExtraTreesRegressor"
)

func init() {
	gob.Register(&ForestRegressor{})
	model.RegisterType(TypeRandomForestRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultRandomForestRegressorParams()
		if err := p.Decode("RandomForestRegressor", &cfg); err != nil {
			return nil, err
		}
		if err := tree.CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewRandomForestRegressor(cfg), nil
	})
	model.RegisterType(TypeExtraTreesRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultExtraTreesRegressorParams()
		if err := p.Decode("ExtraTreesRegressor", &cfg); err != nil {
			return nil, err
		}
		if err := tree.CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewExtraTreesRegressor(cfg), nil
	})
}

// ForestRegressorParams holds the hyperparameters shared by RandomForestRegressor
// and ExtraTreesRegressor.
type ForestRegressorParams struct {
	NEstimators     int         `mapstructure:"n_estimators" validate:"gte=1"`
	Criterion       string      `mapstructure:"criterion" validate:"oneof=squared_error friedman_mse"`
	MaxDepth        int         `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int         `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	Bootstrap       bool        `mapstructure:"bootstrap"`
	NJobs           int         `mapstructure:"n_jobs"`
	RandomState     int64       `mapstructure:"random_state"`
	Verbose         int         `mapstructure:"verbose"`
}

// DefaultRandomForestRegressorParams returns scikit-learn's defaults.
func DefaultRandomForestRegressorParams() ForestRegressorParams {
	return ForestRegressorParams{
		NEstimators:     100,
		Criterion:       string(tree.SquaredError),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     1.0,
		Bootstrap:       true,
	}
}

// DefaultExtraTreesRegressorParams returns scikit-learn's defaults; unlike
// random forests, extra trees do not bootstrap.
func DefaultExtraTreesRegressorParams() ForestRegressorParams {
	p := DefaultRandomForestRegressorParams()
	p.Bootstrap = false
	return p
}

// ForestRegressor averages regression trees. Random forests search the best
// threshold per candidate feature; extra trees draw it at random.
type ForestRegressor struct {
	model.BaseEstimator

	Kind     string
	Splitter string
	Params   ForestRegressorParams

	Estimators []*tree.Tree
}

// NewRandomForestRegressor creates an unfitted random forest.
func NewRandomForestRegressor(params ForestRegressorParams) *ForestRegressor {
	return &ForestRegressor{Kind: "RandomForestRegressor", Splitter: tree.SplitBest, Params: params}
}

// NewExtraTreesRegressor creates an unfitted extremely randomized forest.
func NewExtraTreesRegressor(params ForestRegressorParams) *ForestRegressor {
	return &ForestRegressor{Kind: "ExtraTreesRegressor", Splitter: tree.SplitRandom, Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (f *ForestRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(f.Params)
}

// Fit grows n_estimators trees on X and y.
func (f *ForestRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY(f.Kind+".Fit", X, y)
	if err != nil {
		return err
	}
	maxFeatures, err := tree.ResolveMaxFeatures(f.Params.MaxFeatures, nFeatures)
	if err != nil {
		return err
	}
	weights := make([]float64, nSamples)
	for i := range weights {
		weights[i] = 1
	}
	trees, err := growForest(model.Rows(X), model.Column(y), weights,
		f.Params.NEstimators, f.Params.NJobs, f.Params.Bootstrap, f.Params.RandomState,
		tree.GrowConfig{
			Criterion:       tree.SquaredError,
			Splitter:        f.Splitter,
			MaxDepth:        f.Params.MaxDepth,
			MinSamplesSplit: f.Params.MinSamplesSplit,
			MinSamplesLeaf:  f.Params.MinSamplesLeaf,
			MaxFeatures:     maxFeatures,
		})
	if err != nil {
		return err
	}
	f.Estimators = trees
	f.SetDimensions(nFeatures, nSamples)
	f.SetFitted()
	return nil
}

// Predict returns the mean prediction of the trees.
func (f *ForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.RequireFitted(f.Kind, "Predict"); err != nil {
		return nil, err
	}
	if err := f.CheckFeatures(f.Kind+".Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	parallel.Parallelize(len(rows), f.Params.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for _, t := range f.Estimators {
				sum += t.Predict(rows[i])[0]
			}
			out[i] = sum / float64(len(f.Estimators))
		}
	})
	return model.ColumnVector(out), nil
}

// Score returns the coefficient of determination R^2.
func (f *ForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return model.R2(f, X, y)
}

// FeatureImportances returns the mean decrease in impurity per feature.
func (f *ForestRegressor) FeatureImportances() []float64 {
	if f.Estimators == nil {
		return nil
	}
	return forestImportances(f.Estimators, f.NFeatures)
}
