package ensemble

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

const (
	TypeLightGBMClassifier = "ensemble.LightGBMClassifier"
	TypeLightGBMRegressor  = "ensemble.LightGBMRegressor"
)

func init() {
	gob.Register(&LightGBMClassifier{})
	gob.Register(&LightGBMRegressor{})
	model.RegisterType(TypeLightGBMClassifier, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultLightGBMParams()
		if err := p.Decode("LightGBMClassifier", &cfg); err != nil {
			return nil, err
		}
		return NewLightGBMClassifier(cfg), nil
	})
	model.RegisterType(TypeLightGBMRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultLightGBMParams()
		if err := p.Decode("LightGBMRegressor", &cfg); err != nil {
			return nil, err
		}
		return NewLightGBMRegressor(cfg), nil
	})
}

// LightGBMParams mirrors LGBMClassifier / LGBMRegressor.
//
// Row bagging only happens when subsample < 1 and subsample_freq > 0.
// max_depth <= 0 leaves depth unlimited; num_leaves bounds the tree instead.
type LightGBMParams struct {
	NEstimators     int     `mapstructure:"n_estimators" validate:"gte=1"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"gt=0"`
	MaxDepth        int     `mapstructure:"max_depth"`
	NumLeaves       int     `mapstructure:"num_leaves" validate:"gt=1,lte=131072"`
	MinChildSamples int     `mapstructure:"min_child_samples" validate:"gte=0"`
	MinChildWeight  float64 `mapstructure:"min_child_weight" validate:"gte=0"`
	MinSplitGain    float64 `mapstructure:"min_split_gain" validate:"gte=0"`
	Subsample       float64 `mapstructure:"subsample" validate:"gt=0,lte=1"`
	SubsampleFreq   int     `mapstructure:"subsample_freq" validate:"gte=0"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" validate:"gt=0,lte=1"`
	RegAlpha        float64 `mapstructure:"reg_alpha" validate:"gte=0"`
	RegLambda       float64 `mapstructure:"reg_lambda" validate:"gte=0"`
	ClassWeight     string  `mapstructure:"class_weight" validate:"omitempty,oneof=balanced none"`
	NJobs           int     `mapstructure:"n_jobs"`
	RandomState     int64   `mapstructure:"random_state"`
	Verbose         int     `mapstructure:"verbose"`
}

// DefaultLightGBMParams returns LightGBM's defaults.
func DefaultLightGBMParams() LightGBMParams {
	return LightGBMParams{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxDepth:        -1,
		NumLeaves:       31,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1,
		ColsampleByTree: 1,
		NJobs:           -1,
		Verbose:         -1,
	}
}

func (p LightGBMParams) config() BoostConfig {
	subsample := p.Subsample
	if p.SubsampleFreq == 0 {
		subsample = 1
	}
	return BoostConfig{
		NEstimators:     p.NEstimators,
		LearningRate:    p.LearningRate,
		Policy:          GrowLeafwise,
		MaxDepth:        p.MaxDepth,
		MaxLeaves:       p.NumLeaves,
		Lambda:          p.RegLambda,
		Alpha:           p.RegAlpha,
		Gamma:           p.MinSplitGain,
		MinChildWeight:  p.MinChildWeight,
		MinChildSamples: p.MinChildSamples,
		Subsample:       subsample,
		BagFreq:         p.SubsampleFreq,
		ColsampleByTree: p.ColsampleByTree,
		NJobs:           p.NJobs,
		Seed:            p.RandomState,
	}
}

// LightGBMClassifier is a leaf-wise gradient-boosted tree classifier.
type LightGBMClassifier struct {
	BoostedClassifier

	Params LightGBMParams
}

// NewLightGBMClassifier creates an unfitted classifier.
func NewLightGBMClassifier(params LightGBMParams) *LightGBMClassifier {
	return &LightGBMClassifier{
		BoostedClassifier: BoostedClassifier{ModelName: "LightGBMClassifier"},
		Params:            params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (l *LightGBMClassifier) GetParams() map[string]interface{} {
	return model.ParamsOf(l.Params)
}

// Fit boosts n_estimators rounds of leaf-wise trees.
func (l *LightGBMClassifier) Fit(X, y mat.Matrix) error {
	return l.fit(X, y, l.Params.ClassWeight, l.Params.config())
}

// LightGBMRegressor is a leaf-wise gradient-boosted tree regressor.
type LightGBMRegressor struct {
	BoostedRegressor

	Params LightGBMParams
}

// NewLightGBMRegressor creates an unfitted regressor.
func NewLightGBMRegressor(params LightGBMParams) *LightGBMRegressor {
	return &LightGBMRegressor{
		BoostedRegressor: BoostedRegressor{ModelName: "LightGBMRegressor"},
		Params:           params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (l *LightGBMRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(l.Params)
}

// Fit boosts n_estimators rounds of leaf-wise trees.
func (l *LightGBMRegressor) Fit(X, y mat.Matrix) error {
	return l.fit(X, y, l.Params.config())
}
