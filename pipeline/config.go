package pipeline

import (
	"github.com/YuminosukeSato/mlkit/config"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/registry"
	"github.com/YuminosukeSato/mlkit/sklearn/model_selection"
)

// OutputFromConfig builds the artifact destination of cfg.
func OutputFromConfig(cfg *config.Config) (Output, error) {
	store, err := cfg.Store()
	if err != nil {
		return Output{}, err
	}
	return Output{Store: store, Dir: cfg.Output.Dir, Versioned: cfg.Output.Versioned}, nil
}

// ClassificationOptionsFromConfig starts from DefaultClassificationOptions and
// applies the train and output sections of cfg. Data and Target are left to
// the caller.
func ClassificationOptionsFromConfig(cfg *config.Config) (ClassificationOptions, error) {
	opts := DefaultClassificationOptions()
	out, err := OutputFromConfig(cfg)
	if err != nil {
		return opts, err
	}
	average, err := metrics.ParseAverage(cfg.Train.Average)
	if err != nil {
		return opts, err
	}
	scale, err := preprocessing.ParseScaleMode(cfg.Train.Scale)
	if err != nil {
		return opts, err
	}
	opts.TestSize = cfg.Train.TestSize
	opts.Seed = cfg.Train.Seed
	opts.Stratify = cfg.Train.Stratify
	opts.Average = average
	opts.Scale = scale
	opts.Output = out
	return opts, nil
}

// RegressionOptionsFromConfig is ClassificationOptionsFromConfig for Regression.
func RegressionOptionsFromConfig(cfg *config.Config) (RegressionOptions, error) {
	opts := DefaultRegressionOptions()
	out, err := OutputFromConfig(cfg)
	if err != nil {
		return opts, err
	}
	scale, err := preprocessing.ParseScaleMode(cfg.Train.Scale)
	if err != nil {
		return opts, err
	}
	opts.TestSize = cfg.Train.TestSize
	opts.Seed = cfg.Train.Seed
	opts.Scale = scale
	opts.Output = out
	return opts, nil
}

// ClusteringOptionsFromConfig applies the scaling and output sections of cfg.
func ClusteringOptionsFromConfig(cfg *config.Config) (ClusteringOptions, error) {
	opts := DefaultClusteringOptions()
	out, err := OutputFromConfig(cfg)
	if err != nil {
		return opts, err
	}
	scale, err := preprocessing.ParseScaleMode(cfg.Train.Scale)
	if err != nil {
		return opts, err
	}
	opts.Scale = scale
	opts.Output = out
	return opts, nil
}

// SearchOptionsFromConfig applies the search section of cfg to
// model_selection.DefaultSearchOptions for a search over family. Folds are
// stratified for classification and plain otherwise.
func SearchOptionsFromConfig(cfg *config.Config, family registry.Family) model_selection.SearchOptions {
	opts := model_selection.DefaultSearchOptions()
	opts.NIter = cfg.Search.Trials
	opts.Sampler = cfg.Search.Sampler
	opts.Scoring = cfg.Search.Scoring
	opts.Seed = cfg.Train.Seed
	if family == registry.Classification {
		opts.CV = model_selection.StratifiedKFold{NSplits: cfg.Search.Folds}
	} else {
		opts.CV = model_selection.KFold{NSplits: cfg.Search.Folds}
	}
	return opts
}
