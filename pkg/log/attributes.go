// Package log defines standard attribute keys for machine learning operations.
//
// The keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") so that pipeline runs, factory lookups and estimator
// training can be filtered uniformly in structured log output.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the registry name or type of a model.
	// Examples: "random_forest", "KMeans"
	ModelNameKey = "model.name"

	// FamilyKey identifies the model family.
	// Values: "classification", "regression", "clustering"
	FamilyKey = "model.family"

	// TypeRefKey is the type reference a registry entry resolves through.
	// Example: "ensemble.RandomForestClassifier"
	TypeRefKey = "model.type_ref"

	// HyperParamsKey contains the merged hyperparameters of a constructed model.
	HyperParamsKey = "model.hyperparams"

	// OperationKey specifies the machine learning operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	ComponentKey = "ml.component"
)

// Pipeline Context
const (
	// RunIDKey is the unique identifier of one pipeline invocation.
	RunIDKey = "pipeline.run_id"

	// StageKey names the pipeline stage (load, scale, construct, fit, ...).
	StageKey = "pipeline.stage"

	// ArtifactKey is the name of a persisted artifact.
	ArtifactKey = "artifact.name"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct target classes.
	ClassesKey = "data.classes"

	// ScaleKey names the feature scaling applied before fitting.
	ScaleKey = "data.scale"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// ScoreKey records a generic score (CV mean, objective value).
	ScoreKey = "metrics.score"

	// LossKey records loss value during training.
	LossKey = "metrics.loss"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"

	// TrialKey records the trial number of a hyperparameter search.
	TrialKey = "search.trial"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error or warning encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationConstruct = "construct"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
	OperationPersist   = "persist"
	OperationSearch    = "search"
)
