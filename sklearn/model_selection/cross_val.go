package model_selection

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// EstimatorFunc builds a fresh unfitted estimator for one fold.
type EstimatorFunc func() (model.Estimator, error)

// CrossValScore fits a new estimator on the training rows of every fold and
// scores it on the held-out rows. Folds run on at most nJobs goroutines
// (nJobs <= 0 means all CPUs); scores are returned in fold order.
func CrossValScore(newEstimator EstimatorFunc, X, y mat.Matrix, cv Splitter, scorer ScoreFunc, nJobs int) ([]float64, error) {
	n, _, err := model.CheckXY("CrossValScore", X, y)
	if err != nil {
		return nil, err
	}
	if newEstimator == nil || cv == nil || scorer == nil {
		return nil, errors.NewValueError("CrossValScore", "estimator factory, splitter and scorer are required")
	}
	folds, err := cv.Split(n, model.Column(y))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	err = parallel.ForEach(len(folds), nJobs, func(i int) error {
		est, err := newEstimator()
		if err != nil {
			return err
		}
		f := folds[i]
		if err := est.Fit(TakeRows(X, f.Train), TakeRows(y, f.Train)); err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		s, err := scorer(est, TakeRows(X, f.Test), TakeRows(y, f.Test))
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		scores[i] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// MeanStd summarises fold scores.
func MeanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	mean, std = stat.PopMeanStdDev(scores, nil)
	return mean, std
}
