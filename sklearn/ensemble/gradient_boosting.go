package ensemble

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/sklearn/tree"
)

const TypeGradientBoostingRegressor = "ensemble.GradientBoostingRegressor"

func init() {
	gob.Register(&GradientBoostingRegressor{})
	model.RegisterType(TypeGradientBoostingRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultGradientBoostingParams()
		if err := p.Decode("GradientBoostingRegressor", &cfg); err != nil {
			return nil, err
		}
		if err := tree.CheckMaxFeatures(cfg.MaxFeatures); err != nil {
			return nil, err
		}
		return NewGradientBoostingRegressor(cfg), nil
	})
}

// GradientBoostingParams mirrors scikit-learn's GradientBoostingRegressor.
type GradientBoostingParams struct {
	Loss            string      `mapstructure:"loss" validate:"oneof=squared_error"`
	LearningRate    float64     `mapstructure:"learning_rate" validate:"gte=0"`
	NEstimators     int         `mapstructure:"n_estimators" validate:"gte=1"`
	Subsample       float64     `mapstructure:"subsample" validate:"gt=0,lte=1"`
	Criterion       string      `mapstructure:"criterion" validate:"oneof=friedman_mse squared_error"`
	MinSamplesSplit int         `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int         `mapstructure:"min_samples_leaf" validate:"gte=1"`
	MaxDepth        int         `mapstructure:"max_depth" validate:"gte=0"`
	MaxFeatures     interface{} `mapstructure:"max_features"`
	RandomState     int64       `mapstructure:"random_state"`
	Verbose         int         `mapstructure:"verbose"`
}

// DefaultGradientBoostingParams returns scikit-learn's defaults.
func DefaultGradientBoostingParams() GradientBoostingParams {
	return GradientBoostingParams{
		Loss:            "squared_error",
		LearningRate:    0.1,
		NEstimators:     100,
		Subsample:       1,
		Criterion:       "friedman_mse",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxDepth:        3,
	}
}

// GradientBoostingRegressor fits least-squares regression trees to residuals.
// Leaves hold the mean residual, so the engine runs without regularization.
type GradientBoostingRegressor struct {
	BoostedRegressor

	Params GradientBoostingParams
}

// NewGradientBoostingRegressor creates an unfitted regressor.
func NewGradientBoostingRegressor(params GradientBoostingParams) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		BoostedRegressor: BoostedRegressor{ModelName: "GradientBoostingRegressor"},
		Params:           params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(gb.Params)
}

// Fit boosts n_estimators stages of depth-limited trees.
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	if X == nil {
		return gb.fit(X, y, BoostConfig{})
	}
	_, nFeatures := X.Dims()
	maxFeatures, err := tree.ResolveMaxFeatures(gb.Params.MaxFeatures, nFeatures)
	if err != nil {
		return err
	}
	return gb.fit(X, y, BoostConfig{
		NEstimators:     gb.Params.NEstimators,
		LearningRate:    gb.Params.LearningRate,
		Policy:          GrowDepthwise,
		MaxDepth:        gb.Params.MaxDepth,
		MinChildSamples: gb.Params.MinSamplesLeaf,
		MinSamplesSplit: gb.Params.MinSamplesSplit,
		Subsample:       gb.Params.Subsample,
		MaxFeatures:     maxFeatures,
		Seed:            gb.Params.RandomState,
		NJobs:           1,
	})
}
