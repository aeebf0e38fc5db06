package ensemble

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

const (
	TypeXGBoostClassifier = "ensemble.XGBoostClassifier"
	TypeXGBoostRegressor  = "ensemble.XGBoostRegressor"
)

func init() {
	gob.Register(&XGBoostClassifier{})
	gob.Register(&XGBoostRegressor{})
	model.RegisterType(TypeXGBoostClassifier, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultXGBoostParams()
		if err := p.Decode("XGBoostClassifier", &cfg); err != nil {
			return nil, err
		}
		return NewXGBoostClassifier(cfg), nil
	})
	model.RegisterType(TypeXGBoostRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultXGBoostParams()
		if err := p.Decode("XGBoostRegressor", &cfg); err != nil {
			return nil, err
		}
		return NewXGBoostRegressor(cfg), nil
	})
}

// XGBoostParams mirrors the scikit-learn wrapper of XGBoost.
type XGBoostParams struct {
	NEstimators     int     `mapstructure:"n_estimators" validate:"gte=1"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth        int     `mapstructure:"max_depth" validate:"gte=0"`
	MaxLeaves       int     `mapstructure:"max_leaves" validate:"gte=0"`
	GrowPolicy      string  `mapstructure:"grow_policy" validate:"oneof=depthwise lossguide"`
	MinChildWeight  float64 `mapstructure:"min_child_weight" validate:"gte=0"`
	Gamma           float64 `mapstructure:"gamma" validate:"gte=0"`
	Subsample       float64 `mapstructure:"subsample" validate:"gt=0,lte=1"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" validate:"gt=0,lte=1"`
	RegAlpha        float64 `mapstructure:"reg_alpha" validate:"gte=0"`
	RegLambda       float64 `mapstructure:"reg_lambda" validate:"gte=0"`
	NJobs           int     `mapstructure:"n_jobs"`
	RandomState     int64   `mapstructure:"random_state"`
	Verbosity       int     `mapstructure:"verbosity"`
}

// DefaultXGBoostParams returns XGBoost's defaults.
func DefaultXGBoostParams() XGBoostParams {
	return XGBoostParams{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		GrowPolicy:      string(GrowDepthwise),
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleByTree: 1,
		RegLambda:       1,
		NJobs:           -1,
	}
}

func (p XGBoostParams) config() BoostConfig {
	return BoostConfig{
		NEstimators:     p.NEstimators,
		LearningRate:    p.LearningRate,
		Policy:          GrowPolicy(p.GrowPolicy),
		MaxDepth:        p.MaxDepth,
		MaxLeaves:       p.MaxLeaves,
		Lambda:          p.RegLambda,
		Alpha:           p.RegAlpha,
		Gamma:           p.Gamma,
		MinChildWeight:  p.MinChildWeight,
		Subsample:       p.Subsample,
		ColsampleByTree: p.ColsampleByTree,
		NJobs:           p.NJobs,
		Seed:            p.RandomState,
	}
}

// XGBoostClassifier is a depth-wise gradient-boosted tree classifier.
type XGBoostClassifier struct {
	BoostedClassifier

	Params XGBoostParams
}

// NewXGBoostClassifier creates an unfitted classifier.
func NewXGBoostClassifier(params XGBoostParams) *XGBoostClassifier {
	return &XGBoostClassifier{
		BoostedClassifier: BoostedClassifier{ModelName: "XGBoostClassifier"},
		Params:            params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (x *XGBoostClassifier) GetParams() map[string]interface{} {
	return model.ParamsOf(x.Params)
}

// Fit boosts n_estimators rounds of trees on X and y.
func (x *XGBoostClassifier) Fit(X, y mat.Matrix) error {
	return x.fit(X, y, "", x.Params.config())
}

// XGBoostRegressor is a depth-wise gradient-boosted tree regressor.
type XGBoostRegressor struct {
	BoostedRegressor

	Params XGBoostParams
}

// NewXGBoostRegressor creates an unfitted regressor.
func NewXGBoostRegressor(params XGBoostParams) *XGBoostRegressor {
	return &XGBoostRegressor{
		BoostedRegressor: BoostedRegressor{ModelName: "XGBoostRegressor"},
		Params:           params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (x *XGBoostRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(x.Params)
}

// Fit boosts n_estimators rounds of trees on X and y.
func (x *XGBoostRegressor) Fit(X, y mat.Matrix) error {
	return x.fit(X, y, x.Params.config())
}
