package ensemble

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

const (
	TypeCatBoostClassifier = "ensemble.CatBoostClassifier"
	TypeCatBoostRegressor  = "ensemble.CatBoostRegressor"
)

func init() {
	gob.Register(&CatBoostClassifier{})
	gob.Register(&CatBoostRegressor{})
	model.RegisterType(TypeCatBoostClassifier, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultCatBoostParams()
		if err := p.Decode("CatBoostClassifier", &cfg); err != nil {
			return nil, err
		}
		return NewCatBoostClassifier(cfg), nil
	})
	model.RegisterType(TypeCatBoostRegressor, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultCatBoostParams()
		cfg.LossFunction = "RMSE"
		if err := p.Decode("CatBoostRegressor", &cfg); err != nil {
			return nil, err
		}
		return NewCatBoostRegressor(cfg), nil
	})
}

// Grow policies accepted by CatBoost.
const (
	CatBoostSymmetricTree = "SymmetricTree"
	CatBoostDepthwise     = "Depthwise"
	CatBoostLossguide     = "Lossguide"
)

// CatBoostParams mirrors CatBoostClassifier / CatBoostRegressor.
// loss_function "" picks Logloss or MultiClass from the target for classifiers.
type CatBoostParams struct {
	Iterations    int     `mapstructure:"iterations" validate:"gte=1"`
	LearningRate  float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Depth         int     `mapstructure:"depth" validate:"gte=1,lte=16"`
	L2LeafReg     float64 `mapstructure:"l2_leaf_reg" validate:"gte=0"`
	LossFunction  string  `mapstructure:"loss_function" validate:"omitempty,oneof=Logloss MultiClass RMSE"`
	GrowPolicy    string  `mapstructure:"grow_policy" validate:"oneof=SymmetricTree Depthwise Lossguide"`
	MaxLeaves     int     `mapstructure:"max_leaves" validate:"gte=0"`
	MinDataInLeaf int     `mapstructure:"min_data_in_leaf" validate:"gte=1"`
	BorderCount   int     `mapstructure:"border_count" validate:"gte=1,lte=65535"`
	RSM           float64 `mapstructure:"rsm" validate:"gt=0,lte=1"`
	ThreadCount   int     `mapstructure:"thread_count"`
	RandomState   int64   `mapstructure:"random_state"`
	Verbose       int     `mapstructure:"verbose"`
}

// DefaultCatBoostParams returns CatBoost's defaults.
func DefaultCatBoostParams() CatBoostParams {
	return CatBoostParams{
		Iterations:    1000,
		LearningRate:  0.03,
		Depth:         6,
		L2LeafReg:     3,
		GrowPolicy:    CatBoostSymmetricTree,
		MaxLeaves:     31,
		MinDataInLeaf: 1,
		BorderCount:   254,
		RSM:           1,
		ThreadCount:   -1,
	}
}

func (p CatBoostParams) config() BoostConfig {
	cfg := BoostConfig{
		NEstimators:     p.Iterations,
		LearningRate:    p.LearningRate,
		Policy:          GrowSymmetric,
		MaxDepth:        p.Depth,
		Lambda:          p.L2LeafReg,
		MaxBins:         p.BorderCount,
		ColsampleByTree: p.RSM,
		NJobs:           p.ThreadCount,
		Seed:            p.RandomState,
	}
	switch p.GrowPolicy {
	case CatBoostDepthwise:
		cfg.Policy = GrowDepthwise
		cfg.MinChildSamples = p.MinDataInLeaf
	case CatBoostLossguide:
		cfg.Policy = GrowLeafwise
		cfg.MaxLeaves = p.MaxLeaves
		cfg.MinChildSamples = p.MinDataInLeaf
	}
	return cfg
}

// CatBoostClassifier is a gradient-boosted classifier on oblivious trees.
type CatBoostClassifier struct {
	BoostedClassifier

	Params CatBoostParams
}

// NewCatBoostClassifier creates an unfitted classifier.
func NewCatBoostClassifier(params CatBoostParams) *CatBoostClassifier {
	return &CatBoostClassifier{
		BoostedClassifier: BoostedClassifier{ModelName: "CatBoostClassifier"},
		Params:            params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (c *CatBoostClassifier) GetParams() map[string]interface{} {
	return model.ParamsOf(c.Params)
}

// Fit boosts the configured number of iterations.
func (c *CatBoostClassifier) Fit(X, y mat.Matrix) error {
	switch c.Params.LossFunction {
	case "RMSE":
		return lossMismatch("CatBoostClassifier.Fit", "RMSE", "a classification target")
	case "Logloss":
		if y != nil {
			if classes, _ := model.EncodeLabels(model.Column(y)); len(classes) > 2 {
				return lossMismatch("CatBoostClassifier.Fit", "Logloss", fmt.Sprintf("%d classes", len(classes)))
			}
		}
	}
	return c.fit(X, y, "", c.Params.config())
}

func lossMismatch(op, loss, target string) error {
	return errors.NewValueError(op, fmt.Sprintf("loss_function %s cannot be used with %s", loss, target))
}

// CatBoostRegressor is a gradient-boosted regressor on oblivious trees.
type CatBoostRegressor struct {
	BoostedRegressor

	Params CatBoostParams
}

// NewCatBoostRegressor creates an unfitted regressor.
func NewCatBoostRegressor(params CatBoostParams) *CatBoostRegressor {
	return &CatBoostRegressor{
		BoostedRegressor: BoostedRegressor{ModelName: "CatBoostRegressor"},
		Params:           params,
	}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (c *CatBoostRegressor) GetParams() map[string]interface{} {
	return model.ParamsOf(c.Params)
}

// Fit boosts the configured number of iterations with the RMSE loss.
func (c *CatBoostRegressor) Fit(X, y mat.Matrix) error {
	if c.Params.LossFunction != "" && c.Params.LossFunction != "RMSE" {
		return lossMismatch("CatBoostRegressor.Fit", c.Params.LossFunction, "a continuous target")
	}
	return c.fit(X, y, c.Params.config())
}
