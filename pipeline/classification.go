package pipeline

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/modeling"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/registry"
	"github.com/YuminosukeSato/mlkit/sklearn/model_selection"
)

// ClassificationOptions configures Classification. Zero values of Model,
// TestSize and Average fall back to the defaults.
type ClassificationOptions struct {
	Data   Source `validate:"-"`
	Target string `validate:"required"`
	Model  string
	// Params override the registry defaults of Model.
	Params   model.Params            `validate:"-"`
	Scale    preprocessing.ScaleMode `validate:"omitempty,oneof=standard minmax"`
	TestSize float64                 `validate:"gte=0,lt=1"`
	Average  metrics.Average         `validate:"omitempty,oneof=binary macro micro weighted"`
	Seed     int64
	Stratify bool
	// ReturnData keeps the train and test matrices in Result.Split.
	// Without it only the row indices are returned.
	ReturnData bool
	Output     Output `validate:"-"`
}

// DefaultClassificationOptions trains a random forest on 80% of the rows with
// seed 42 and binary averaging.
func DefaultClassificationOptions() ClassificationOptions {
	return ClassificationOptions{
		Model:    "random_forest",
		TestSize: 0.2,
		Average:  metrics.AverageBinary,
		Seed:     42,
	}
}

func (o *ClassificationOptions) fill() {
	if o.Model == "" {
		o.Model = "random_forest"
	}
	if o.TestSize == 0 {
		o.TestSize = 0.2
	}
	if o.Average == "" {
		o.Average = metrics.AverageBinary
	}
}

// Classification fits a classifier on a hold-out split of the table, scores
// it on the test rows and saves the model (and scaler) to the output store.
func Classification(ctx context.Context, opts ClassificationOptions) (res *Result, err error) {
	opts.fill()
	r := newRun(ctx, registry.Classification, opts.Model)
	defer func() { r.finish(err) }()

	if err := validate.Struct(opts); err != nil {
		return nil, errors.NewValidationError("ClassificationOptions", err.Error(), nil)
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
			Stratify:    opts.Stratify,
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
	var proba mat.Matrix
	err = r.stage(StagePredict, func() error {
		if pred, err = modeling.Predict(est, split.XTest); err != nil {
			return err
		}
		if pp, ok := model.ProbaOf(est); ok {
			if proba, err = pp.PredictProba(split.XTest); err != nil {
				return err
			}
		}
		r.note(log.SamplesKey, len(pred))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var report *metrics.Report
	err = r.stage(StageEvaluate, func() error {
		classes := modeling.ClassesOf(est, model.Column(split.YTrain))
		report, err = modeling.EvaluateClassification(model.Column(split.YTest), pred, proba, classes, opts.Average)
		if err != nil {
			return err
		}
		acc, _ := report.Value(metrics.NameAccuracy)
		r.note(log.AccuracyKey, acc)
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
