package pipeline

import (
	"context"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/modeling"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/registry"
	"github.com/YuminosukeSato/mlkit/sklearn/model_selection"
)

// RegressionOptions configures Regression.
type RegressionOptions struct {
	Data     Source `validate:"-"`
	Target   string `validate:"required"`
	Model    string
	Params   model.Params            `validate:"-"`
	Scale    preprocessing.ScaleMode `validate:"omitempty,oneof=standard minmax"`
	TestSize float64                 `validate:"gte=0,lt=1"`
	Seed     int64
	// ReturnData keeps the train and test matrices in Result.Split.
	// Without it only the row indices are returned.
	ReturnData bool
	Output     Output `validate:"-"`
}

// DefaultRegressionOptions trains a random forest regressor on 80% of the
// rows with seed 42.
func DefaultRegressionOptions() RegressionOptions {
	return RegressionOptions{Model: "random_forest", TestSize: 0.2, Seed: 42}
}

// Regression is Classification for continuous targets: MAE, MSE, R2, RMSE
// and MAPE are reported on the test rows.
func Regression(ctx context.Context, opts RegressionOptions) (res *Result, err error) {
	if opts.Model == "" {
		opts.Model = "random_forest"
	}
	if opts.TestSize == 0 {
		opts.TestSize = 0.2
	}
	r := newRun(ctx, registry.Regression, opts.Model)
	defer func() { r.finish(err) }()

	if err := validate.Struct(opts); err != nil {
		return nil, errors.NewValidationError("RegressionOptions", err.Error(), nil)
	}

	frame, err := r.load(opts.Data)
	if err != nil {
		return nil, err
	}
	X, y, err := r.separate(frame, opts.Target)
	if err != nil {
		return nil, err
	}
	scaler, Xs, err := r.scale(opts.Scale, X)
	if err != nil {
		return nil, err
	}
	est, err := r.construct(opts.Params)
	if err != nil {
		return nil, err
	}

	var split *model_selection.Split
	err = r.stage(StageFit, func() error {
		split, err = modeling.Train(Xs, y, est, modeling.TrainOptions{
			TestSize:    opts.TestSize,
			Seed:        opts.Seed,
			ReturnSplit: true,
		})
		if err != nil {
			return err
		}
		r.note(log.SamplesKey, len(split.TrainIndex))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var pred []float64
	err = r.stage(StagePredict, func() error {
		pred, err = modeling.Predict(est, split.XTest)
		return err
	})
	if err != nil {
		return nil, err
	}

	var report *metrics.Report
	err = r.stage(StageEvaluate, func() error {
		report, err = modeling.EvaluateRegression(model.Column(split.YTest), pred)
		if err != nil {
			return err
		}
		r2, _ := report.Value(metrics.NameR2)
		r.note(log.ScoreKey, r2)
		return nil
	})
	if err != nil {
		return nil, err
	}

	artifacts, err := r.persist(opts.Output, est, scaler)
	if err != nil {
		return nil, err
	}

	res = r.result(est, scaler)
	res.Metrics = report
	res.Split = split
	if !opts.ReturnData {
		res.Split = split.Indices()
	}
	res.Predictions = pred
	res.Artifacts = artifacts
	return res, nil
}
