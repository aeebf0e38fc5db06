package modeling

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

func vec(op string, values []float64) (*mat.VecDense, error) {
	if len(values) == 0 {
		return nil, errors.NewValueError(op, "empty input")
	}
	return mat.NewVecDense(len(values), values), nil
}

func pair(op string, yTrue, yPred []float64) (*mat.VecDense, *mat.VecDense, error) {
	if len(yTrue) != len(yPred) {
		return nil, nil, errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	t, err := vec(op, yTrue)
	if err != nil {
		return nil, nil, err
	}
	p, err := vec(op, yPred)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// EvaluateClassification reports accuracy, precision, recall, F1 and the
// confusion matrix. ROC AUC is added only when proba is given and average is
// binary. classes labels the probability columns in order; the last one is
// the positive class. When classes is nil the sorted labels of yTrue are used.
func EvaluateClassification(yTrue, yPred []float64, proba mat.Matrix, classes []float64, average metrics.Average) (*metrics.Report, error) {
	t, p, err := pair("EvaluateClassification", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if average == "" {
		average = metrics.AverageBinary
	}

	acc, err := metrics.Accuracy(t, p)
	if err != nil {
		return nil, err
	}
	precision, recall, f1, err := metrics.PrecisionRecallFScore(t, p, average)
	if err != nil {
		return nil, err
	}
	cm, _, err := metrics.ConfusionMatrix(t, p)
	if err != nil {
		return nil, err
	}

	report := &metrics.Report{}
	report.Add(metrics.NameAccuracy, acc)
	report.Add(metrics.NamePrecision, precision)
	report.Add(metrics.NameRecall, recall)
	report.Add(metrics.NameF1, f1)
	report.AddMatrix(metrics.NameConfusionMatrix, cm)

	if proba != nil && average == metrics.AverageBinary {
		r, c := proba.Dims()
		if r != len(yTrue) {
			return nil, errors.NewDimensionError("EvaluateClassification", len(yTrue), r, 0)
		}
		if classes == nil {
			classes = metrics.Labels(t)
		}
		if len(classes) != c {
			return nil, errors.NewDimensionError("EvaluateClassification", len(classes), c, 1)
		}
		positive := classes[c-1]
		pos := mat.NewVecDense(r, nil)
		score := mat.NewVecDense(r, nil)
		for i, v := range yTrue {
			if v == positive {
				pos.SetVec(i, 1)
			}
			score.SetVec(i, proba.At(i, c-1))
		}
		auc, err := metrics.AUC(pos, score)
		if err != nil {
			return nil, err
		}
		report.Add(metrics.NameROCAUC, auc)
	}
	return report, nil
}

// ClassesOf returns the labels of the probability columns of est: its fitted
// classes once it has been fitted, otherwise the sorted labels of y.
func ClassesOf(est model.Estimator, y []float64) []float64 {
	if c, ok := est.(interface{ Classes() []float64 }); ok {
		if classes := c.Classes(); len(classes) > 0 {
			return classes
		}
	}
	return metrics.Labels(mat.NewVecDense(len(y), y))
}

// EvaluateRegression reports MAE, MSE, R2, RMSE and MAPE (percent).
func EvaluateRegression(yTrue, yPred []float64) (*metrics.Report, error) {
	t, p, err := pair("EvaluateRegression", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	report := &metrics.Report{}
	for _, m := range []struct {
		name string
		fn   func(yTrue, yPred *mat.VecDense) (float64, error)
	}{
		{metrics.NameMAE, metrics.MAE},
		{metrics.NameMSE, metrics.MSE},
		{metrics.NameR2, metrics.R2Score},
		{metrics.NameRMSE, metrics.RMSE},
		{metrics.NameMAPE, metrics.MAPE},
	} {
		v, err := m.fn(t, p)
		if err != nil {
			return nil, err
		}
		report.Add(m.name, v)
	}
	return report, nil
}

// EvaluateClustering reports the silhouette score and the Davies-Bouldin index.
func EvaluateClustering(X mat.Matrix, labels []int) (*metrics.Report, error) {
	silhouette, err := metrics.SilhouetteScore(X, labels)
	if err != nil {
		return nil, err
	}
	db, err := metrics.DaviesBouldinScore(X, labels)
	if err != nil {
		return nil, err
	}
	report := &metrics.Report{}
	report.Add(metrics.NameSilhouette, silhouette)
	report.Add(metrics.NameDaviesBouldin, db)
	return report, nil
}

// IntLabels converts float cluster predictions into labels.
func IntLabels(pred []float64) []int {
	out := make([]int, len(pred))
	for i, v := range pred {
		out[i] = int(v)
	}
	return out
}
