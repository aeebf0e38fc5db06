// Package modeling adapts estimators to the per-family train, predict and
// evaluate steps the pipelines run.
package modeling

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/sklearn/model_selection"
)

// TrainOptions controls the hold-out split used by Train.
type TrainOptions struct {
	TestSize float64
	Seed     int64
	Stratify bool
	// ReturnSplit keeps the train and test matrices in the returned split.
	// Without it only the row indices are returned.
	ReturnSplit bool
}

// DefaultTrainOptions holds out 20% of the rows with seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{TestSize: 0.2, Seed: 42}
}

// Train splits X and y once and fits est on the training rows. est is
// modified in place.
func Train(X, y mat.Matrix, est model.Fitter, opts TrainOptions) (*model_selection.Split, error) {
	if est == nil {
		return nil, errors.NewValueError("Train", "estimator must not be nil")
	}
	if _, _, err := model.CheckXY("Train", X, y); err != nil {
		return nil, err
	}
	split, err := model_selection.TrainTestSplit(X, y, opts.TestSize, opts.Seed, opts.Stratify)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := est.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, err
	}
	r, c := split.XTrain.Dims()
	log.GetLoggerWithName("modeling").Debug("estimator fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if !opts.ReturnSplit {
		split = split.Indices()
	}
	return split, nil
}

// TrainClustering fits est on all of X and returns the cluster of every row.
func TrainClustering(X mat.Matrix, est model.Estimator) ([]float64, error) {
	if est == nil {
		return nil, errors.NewValueError("TrainClustering", "estimator must not be nil")
	}
	if err := est.Fit(X, nil); err != nil {
		return nil, err
	}
	return Predict(est, X)
}

// Predict delegates to est and flattens the single-column result.
func Predict(est model.Predictor, X mat.Matrix) ([]float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	return model.Column(pred), nil
}
