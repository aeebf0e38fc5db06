package model_selection

import (
	"fmt"
	"sort"

	"github.com/c-bata/goptuna"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Distribution is a hyperparameter search dimension sampled through a goptuna trial.
type Distribution interface {
	Suggest(trial goptuna.Trial, name string) (interface{}, error)
	String() string
}

// IntRange samples integers uniformly from [Low, High).
type IntRange struct {
	Low, High int
}

// Suggest implements Distribution.
func (d IntRange) Suggest(trial goptuna.Trial, name string) (interface{}, error) {
	return trial.SuggestInt(name, d.Low, d.High-1)
}

func (d IntRange) String() string { return fmt.Sprintf("randint(%d, %d)", d.Low, d.High) }

// Uniform samples floats uniformly from [Loc, Loc+Scale].
type Uniform struct {
	Loc, Scale float64
}

// Suggest implements Distribution.
func (d Uniform) Suggest(trial goptuna.Trial, name string) (interface{}, error) {
	return trial.SuggestFloat(name, d.Loc, d.Loc+d.Scale)
}

func (d Uniform) String() string { return fmt.Sprintf("uniform(%g, %g)", d.Loc, d.Scale) }

// Choice samples one of a fixed set of string options.
type Choice []string

// Suggest implements Distribution.
func (d Choice) Suggest(trial goptuna.Trial, name string) (interface{}, error) {
	return trial.SuggestCategorical(name, d)
}

func (d Choice) String() string { return fmt.Sprintf("choice%v", []string(d)) }

// Space maps hyperparameter names to their distributions.
type Space map[string]Distribution

// Suggest draws one value for every dimension, in sorted key order.
func (s Space) Suggest(trial goptuna.Trial) (model.Params, error) {
	keys := lo.Keys(s)
	sort.Strings(keys)
	params := make(model.Params, len(s))
	for _, k := range keys {
		v, err := s[k].Suggest(trial, k)
		if err != nil {
			return nil, errors.Wrapf(err, "suggest %s", k)
		}
		params[k] = v
	}
	return params, nil
}

// "none" stands in for an unset penalty or class weighting.
var classificationSpaces = map[string]Space{
	"logistic_regression": {
		"C":       Uniform{0.01, 10},
		"penalty": Choice{"l1", "l2", "elasticnet", "none"},
		"solver":  Choice{"liblinear", "saga"},
	},
	"random_forest": {
		"n_estimators":      IntRange{100, 200},
		"max_depth":         IntRange{5, 15},
		"min_samples_split": IntRange{2, 10},
		"min_samples_leaf":  IntRange{1, 10},
		"class_weight":      Choice{"balanced", "none"},
	},
	"xgboost": {
		"n_estimators":     IntRange{50, 300},
		"max_depth":        IntRange{3, 12},
		"learning_rate":    Uniform{0.01, 0.3},
		"subsample":        Uniform{0.5, 1.0},
		"colsample_bytree": Uniform{0.5, 1.0},
	},
	"lightgbm": {
		"n_estimators":  IntRange{50, 300},
		"max_depth":     IntRange{-1, 12},
		"learning_rate": Uniform{0.01, 0.3},
		"num_leaves":    IntRange{20, 60},
		"subsample":     Uniform{0.5, 1.0},
	},
	"catboost": {
		"iterations":    IntRange{50, 300},
		"depth":         IntRange{4, 10},
		"learning_rate": Uniform{0.01, 0.3},
		"l2_leaf_reg":   Uniform{1, 10},
	},
	"tree_classifier": {
		"max_depth":         IntRange{3, 15},
		"min_samples_split": IntRange{2, 10},
		"min_samples_leaf":  IntRange{1, 5},
	},
	"svm_classifier": {
		"C":      Uniform{0.1, 10},
		"kernel": Choice{"linear", "poly", "rbf", "sigmoid"},
		"degree": IntRange{2, 5},
		"gamma":  Choice{"scale", "auto"},
	},
}

// ParamDistributions returns a copy of the random search space defined for a
// classification model.
func ParamDistributions(name string) (Space, error) {
	s, ok := classificationSpaces[name]
	if !ok {
		return nil, errors.NewValueError("ParamDistributions",
			fmt.Sprintf("no search space defined for model %q", name))
	}
	out := make(Space, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}
