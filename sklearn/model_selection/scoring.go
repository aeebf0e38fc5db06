package model_selection

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// ScoreFunc evaluates a fitted estimator on held-out data. Greater is better.
type ScoreFunc func(est model.Estimator, X, y mat.Matrix) (float64, error)

var scorers = map[string]ScoreFunc{
	"accuracy":                    labelScorer(metrics.Accuracy),
	"f1":                          averagedScorer(metrics.F1Score, metrics.AverageBinary),
	"f1_macro":                    averagedScorer(metrics.F1Score, metrics.AverageMacro),
	"f1_micro":                    averagedScorer(metrics.F1Score, metrics.AverageMicro),
	"f1_weighted":                 averagedScorer(metrics.F1Score, metrics.AverageWeighted),
	"precision":                   averagedScorer(metrics.Precision, metrics.AverageBinary),
	"precision_weighted":          averagedScorer(metrics.Precision, metrics.AverageWeighted),
	"recall":                      averagedScorer(metrics.Recall, metrics.AverageBinary),
	"recall_weighted":             averagedScorer(metrics.Recall, metrics.AverageWeighted),
	"roc_auc":                     rocAUC,
	"r2":                          labelScorer(metrics.R2Score),
	"neg_mean_squared_error":      negated(metrics.MSE),
	"neg_mean_absolute_error":     negated(metrics.MAE),
	"neg_root_mean_squared_error": negated(metrics.RMSE),
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (ScoreFunc, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer; valid names are "+strings.Join(ScorerNames(), ", "), name)
	}
	return s, nil
}

// ScorerNames lists the registered scorer names in sorted order.
func ScorerNames() []string {
	names := lo.Keys(scorers)
	sort.Strings(names)
	return names
}

func predictPair(est model.Estimator, X, y mat.Matrix) (truth, pred *mat.VecDense, err error) {
	p, err := est.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	return mat.NewVecDense(len(model.Column(y)), model.Column(y)),
		mat.NewVecDense(len(model.Column(p)), model.Column(p)), nil
}

func labelScorer(metric func(yTrue, yPred *mat.VecDense) (float64, error)) ScoreFunc {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		truth, pred, err := predictPair(est, X, y)
		if err != nil {
			return 0, err
		}
		return metric(truth, pred)
	}
}

func averagedScorer(metric func(yTrue, yPred *mat.VecDense, average metrics.Average) (float64, error), average metrics.Average) ScoreFunc {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		truth, pred, err := predictPair(est, X, y)
		if err != nil {
			return 0, err
		}
		return metric(truth, pred, average)
	}
}

func negated(metric func(yTrue, yPred *mat.VecDense) (float64, error)) ScoreFunc {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		v, err := labelScorer(metric)(est, X, y)
		return -v, err
	}
}

// rocAUC scores the probability of the larger of two classes.
func rocAUC(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pp, ok := model.ProbaOf(est)
	if !ok {
		return 0, errors.NewValueError("roc_auc", "estimator does not provide class probabilities")
	}
	classes := classesOf(est, y)
	if len(classes) != 2 {
		return 0, errors.NewValueError("roc_auc", "roc_auc scoring requires exactly two classes")
	}
	proba, err := pp.PredictProba(X)
	if err != nil {
		return 0, err
	}
	truth := model.Column(y)
	pos := mat.NewVecDense(len(truth), nil)
	score := mat.NewVecDense(len(truth), nil)
	_, c := proba.Dims()
	for i, v := range truth {
		if v == classes[1] {
			pos.SetVec(i, 1)
		}
		score.SetVec(i, proba.At(i, c-1))
	}
	return metrics.AUC(pos, score)
}

func classesOf(est model.Estimator, y mat.Matrix) []float64 {
	if c, ok := est.(interface{ Classes() []float64 }); ok {
		return c.Classes()
	}
	col := model.Column(y)
	return metrics.Labels(mat.NewVecDense(len(col), col))
}
