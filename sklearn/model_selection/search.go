package model_selection

import (
	"context"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/factory"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/registry"
)

// Sampler names accepted by SearchOptions.
const (
	SamplerRandom = "random"
	SamplerTPE    = "tpe"
)

// Trial states.
const (
	TrialComplete = "complete"
	TrialPruned   = "pruned"
)

// SearchOptions configures RandomizedSearchCV.
type SearchOptions struct {
	NIter         int
	CV            Splitter
	Scoring       string
	Sampler       string
	Seed          int64
	NJobs         int
	Distributions Space
	// Overrides are fixed hyperparameters applied beneath every sampled set.
	Overrides model.Params
	// Refit fits the best configuration on all of X and y.
	Refit bool
}

// DefaultSearchOptions runs ten iterations over ten stratified folds scored by
// weighted F1 with seed 42.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		NIter:   10,
		CV:      StratifiedKFold{NSplits: 10, Shuffle: false},
		Scoring: "f1_weighted",
		Sampler: SamplerRandom,
		Seed:    42,
		NJobs:   -1,
		Refit:   true,
	}
}

// Trial records one sampled configuration.
type Trial struct {
	Number int
	Params model.Params
	Scores []float64
	Mean   float64
	Std    float64
	State  string
	Err    error
}

// SearchResult is the outcome of RandomizedSearchCV.
type SearchResult struct {
	BestParams    model.Params
	BestScore     float64
	BestIndex     int
	BestEstimator model.Estimator
	Trials        []Trial
}

func newSampler(name string, seed int64) (goptuna.Sampler, error) {
	switch name {
	case "", SamplerRandom:
		return goptuna.NewRandomSampler(goptuna.RandomSamplerOptionSeed(seed)), nil
	case SamplerTPE:
		return tpe.NewSampler(tpe.SamplerOptionSeed(seed)), nil
	default:
		return nil, errors.NewValidationError("sampler", "must be random or tpe", name)
	}
}

// RandomizedSearchCV samples NIter hyperparameter sets for the named model and
// scores each by mean cross-validated score. Configurations the estimator
// rejects are recorded as pruned trials. The search stops between trials when
// ctx is cancelled.
func RandomizedSearchCV(ctx context.Context, family registry.Family, name string, X, y mat.Matrix, opts SearchOptions) (*SearchResult, error) {
	if opts.NIter <= 0 {
		return nil, errors.NewValidationError("n_iter", "must be positive", opts.NIter)
	}
	if opts.CV == nil {
		opts.CV = KFold{NSplits: 5}
		if family == registry.Classification {
			opts.CV = StratifiedKFold{NSplits: 5}
		}
	}
	if opts.Scoring == "" {
		opts.Scoring = "f1_weighted"
	}
	scorer, err := GetScorer(opts.Scoring)
	if err != nil {
		return nil, err
	}
	if _, err := registry.GetConfig(family, name); err != nil {
		return nil, err
	}
	space := opts.Distributions
	if space == nil {
		if family != registry.Classification {
			return nil, errors.NewValueError("RandomizedSearchCV", "distributions are required for "+string(family)+" models")
		}
		if space, err = ParamDistributions(name); err != nil {
			return nil, err
		}
	}
	sampler, err := newSampler(opts.Sampler, opts.Seed)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("model_selection").With(
		log.OperationKey, log.OperationSearch,
		log.FamilyKey, string(family),
		log.ModelNameKey, name,
	)
	study, err := goptuna.CreateStudy(name+"-search",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(sampler))
	if err != nil {
		return nil, errors.Wrap(err, "create study")
	}
	study.WithContext(ctx)

	result := &SearchResult{BestIndex: -1}
	objective := func(trial goptuna.Trial) (float64, error) {
		record := Trial{Number: len(result.Trials)}
		sampled, err := space.Suggest(trial)
		if err != nil {
			return 0, err
		}
		params := opts.Overrides.Copy().Merge(sampled)
		record.Params = params

		start := time.Now()
		scores, err := CrossValScore(func() (model.Estimator, error) {
			return factory.Create(family, name, params)
		}, X, y, opts.CV, scorer, opts.NJobs)
		if err != nil {
			var construct *errors.ModelConstructionError
			if !errors.As(err, &construct) {
				return 0, err
			}
			record.State, record.Err = TrialPruned, err
			result.Trials = append(result.Trials, record)
			logger.Debug("trial pruned", log.TrialKey, record.Number, log.HyperParamsKey, params.String(), "error", err.Error())
			return 0, goptuna.ErrTrialPruned
		}

		record.Scores = scores
		record.Mean, record.Std = MeanStd(scores)
		record.State = TrialComplete
		result.Trials = append(result.Trials, record)
		if result.BestIndex < 0 || record.Mean > result.BestScore {
			result.BestIndex = record.Number
			result.BestScore = record.Mean
			result.BestParams = params.Copy()
		}
		logger.Info("trial complete",
			log.TrialKey, record.Number,
			log.ScoreKey, record.Mean,
			log.HyperParamsKey, params.String(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return record.Mean, nil
	}

	if err := study.Optimize(objective, opts.NIter); err != nil {
		return nil, errors.Wrap(err, "randomized search")
	}
	if result.BestIndex < 0 {
		return nil, errors.NewValueError("RandomizedSearchCV", "every sampled configuration was rejected by the estimator")
	}

	if opts.Refit {
		est, err := factory.Create(family, name, result.BestParams)
		if err != nil {
			return nil, err
		}
		if err := est.Fit(X, y); err != nil {
			return nil, errors.Wrap(err, "refit best estimator")
		}
		result.BestEstimator = est
	}
	logger.Info("search complete", log.ScoreKey, result.BestScore, log.HyperParamsKey, result.BestParams.String())
	return result, nil
}
