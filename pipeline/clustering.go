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
)

// ClusteringOptions configures Clustering. Every column of the table is a
// feature.
type ClusteringOptions struct {
	Data   Source `validate:"-"`
	Model  string
	Params model.Params            `validate:"-"`
	Scale  preprocessing.ScaleMode `validate:"omitempty,oneof=standard minmax"`
	// NClusters is passed as n_clusters (kmeans) or n_components
	// (gaussian_mixture) unless Params already sets either key.
	NClusters int    `validate:"gte=0"`
	Output    Output `validate:"-"`
}

// DefaultClusteringOptions runs k-means with three clusters.
func DefaultClusteringOptions() ClusteringOptions {
	return ClusteringOptions{Model: "kmeans", NClusters: 3}
}

func clusterParams(name string, params model.Params, nClusters int) model.Params {
	out := params.Copy()
	if out.Has("n_clusters") || out.Has("n_components") {
		return out
	}
	switch name {
	case "kmeans":
		out["n_clusters"] = nClusters
	case "gaussian_mixture":
		out["n_components"] = nClusters
	}
	return out
}

// Clustering fits a clustering model on every row, labels every row and
// reports the silhouette score and Davies-Bouldin index.
func Clustering(ctx context.Context, opts ClusteringOptions) (res *Result, err error) {
	if opts.Model == "" {
		opts.Model = "kmeans"
	}
	if opts.NClusters == 0 {
		opts.NClusters = 3
	}
	r := newRun(ctx, registry.Clustering, opts.Model)
	defer func() { r.finish(err) }()

	if err := validate.Struct(opts); err != nil {
		return nil, errors.NewValidationError("ClusteringOptions", err.Error(), nil)
	}

	frame, err := r.load(opts.Data)
	if err != nil {
		return nil, err
	}
	scaler, Xs, err := r.scale(opts.Scale, frame.Data)
	if err != nil {
		return nil, err
	}
	est, err := r.construct(clusterParams(opts.Model, opts.Params, opts.NClusters))
	if err != nil {
		return nil, err
	}

	var pred []float64
	err = r.stage(StageFit, func() error {
		if pred, err = modeling.TrainClustering(Xs, est); err != nil {
			return err
		}
		r.note(log.SamplesKey, len(pred))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var report *metrics.Report
	err = r.stage(StageEvaluate, func() error {
		report, err = modeling.EvaluateClustering(Xs, modeling.IntLabels(pred))
		if err != nil {
			return err
		}
		silhouette, _ := report.Value(metrics.NameSilhouette)
		r.note(log.ScoreKey, silhouette)
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
	res.Predictions = pred
	res.Artifacts = artifacts
	return res, nil
}
