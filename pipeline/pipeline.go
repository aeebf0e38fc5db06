// Package pipeline runs the load, scale, construct, fit, evaluate and persist
// sequence for each model family.
//
// Every run gets a RunID, logs one record per stage and counts its outcome in
// the mlkit_pipeline_* Prometheus metrics registered on the default registry.
package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/dataset"
	"github.com/YuminosukeSato/mlkit/factory"
	"github.com/YuminosukeSato/mlkit/metrics"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/preprocessing"
	"github.com/YuminosukeSato/mlkit/registry"
	"github.com/YuminosukeSato/mlkit/sklearn/model_selection"
	"github.com/YuminosukeSato/mlkit/storage"
)

// DefaultOutputDir is used when neither Output.Store nor Output.Dir is set.
const DefaultOutputDir = "models_storage"

// Stage names, as logged under log.StageKey and used as the stage label.
const (
	StageLoad      = "load"
	StageSeparate  = "separate"
	StageScale     = "scale"
	StageConstruct = "construct"
	StageFit       = "fit"
	StagePredict   = "predict"
	StageEvaluate  = "evaluate"
	StagePersist   = "persist"
)

// Run outcomes, the status label of mlkit_pipeline_runs_total.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mlkit",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Number of pipeline runs by family, model and outcome.",
	}, []string{"family", "model", "status"})
	stageSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mlkit",
		Subsystem: "pipeline",
		Name:      "stage_seconds",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"family", "stage"})
)

var validate = validator.New()

// Source is the input table. Frame takes precedence over Path.
type Source struct {
	Frame *dataset.Frame
	// Path is a CSV file with a header row.
	Path string
}

// Output says where artifacts go.
type Output struct {
	// Store receives the artifacts. When nil a POSIX store rooted at Dir is used.
	Store storage.Store
	Dir   string
	// Versioned appends _YYYYMMDD_HHMMSS to artifact names.
	Versioned bool
	// Now stamps versioned names; time.Now when nil.
	Now func() time.Time
}

func (o Output) store() storage.Store {
	if o.Store != nil {
		return o.Store
	}
	if o.Dir == "" {
		return storage.NewPOSIX(DefaultOutputDir)
	}
	return storage.NewPOSIX(o.Dir)
}

func (o Output) names(prefixes ...string) []string {
	var now time.Time
	if o.Versioned {
		now = time.Now()
		if o.Now != nil {
			now = o.Now()
		}
	}
	names := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		if o.Versioned {
			names[i] = model.VersionedName(prefix, now)
		} else {
			names[i] = prefix + model.ArtifactExt
		}
	}
	return names
}

// Result is what a successful run returns.
type Result struct {
	RunID     string
	Family    registry.Family
	ModelName string
	Model     model.Estimator
	// Scaler is nil when the run did not scale.
	Scaler  model.InverseTransformer
	Metrics *metrics.Report
	// Split holds the hold-out rows. Clustering runs leave it nil.
	Split       *model_selection.Split
	Predictions []float64
	Artifacts   []string
}

// Render writes a run summary followed by the metric table.
func (r *Result) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Run", "Family", "Model", "Artifacts")
	if err := table.Append([]string{r.RunID, string(r.Family), r.ModelName, strings.Join(r.Artifacts, ", ")}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if r.Metrics == nil {
		return nil
	}
	return r.Metrics.Render(w)
}

// LoadModel reads a model artifact written by a pipeline.
func LoadModel(store storage.Store, name string) (model.Estimator, error) {
	return model.LoadEstimator(store, name)
}

// LoadScaler reads a scaler artifact written by a pipeline.
func LoadScaler(store storage.Store, name string) (model.InverseTransformer, error) {
	var scaler model.InverseTransformer
	if err := model.LoadModel(store, name, &scaler); err != nil {
		return nil, err
	}
	return scaler, nil
}

type run struct {
	ctx     context.Context
	family  registry.Family
	model   string
	id      string
	logger  log.Logger
	pending []any
}

func newRun(ctx context.Context, family registry.Family, modelName string) *run {
	id := uuid.NewString()
	return &run{
		ctx:    ctx,
		family: family,
		model:  modelName,
		id:     id,
		logger: log.GetLoggerWithName("pipeline").With(
			log.RunIDKey, id,
			log.FamilyKey, string(family),
			log.ModelNameKey, modelName,
		),
	}
}

// note adds fields to the record of the stage in progress.
func (r *run) note(fields ...any) {
	r.pending = append(r.pending, fields...)
}

// stage runs fn unless the context is already done, then logs one record.
func (r *run) stage(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return errors.Wrapf(err, "%s pipeline stopped before %s", r.family, name)
	}
	r.pending = r.pending[:0]
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stageSeconds.WithLabelValues(string(r.family), name).Observe(elapsed.Seconds())

	fields := append([]any{log.StageKey, name, log.DurationMsKey, elapsed.Milliseconds()}, r.pending...)
	if err != nil {
		r.logger.Error("pipeline stage failed", append([]any{err}, fields...)...)
		return err
	}
	r.logger.Info("pipeline stage completed", fields...)
	return nil
}

func (r *run) finish(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	runsTotal.WithLabelValues(string(r.family), r.model, status).Inc()
}

func (r *run) load(src Source) (*dataset.Frame, error) {
	var frame *dataset.Frame
	err := r.stage(StageLoad, func() error {
		switch {
		case src.Frame != nil:
			frame = src.Frame
		case src.Path != "":
			f, err := dataset.ReadCSV(src.Path)
			if err != nil {
				return err
			}
			frame = f
		default:
			return errors.NewValidationError("data", "either a frame or a CSV path is required", nil)
		}
		rows, cols := frame.Dims()
		r.note(log.SamplesKey, rows, log.FeaturesKey, cols)
		return nil
	})
	return frame, err
}

func (r *run) separate(frame *dataset.Frame, target string) (X, y *mat.Dense, err error) {
	err = r.stage(StageSeparate, func() error {
		features, labels, names, err := frame.Separate(target)
		if err != nil {
			return err
		}
		X, y = features, labels
		r.note(log.FeaturesKey, len(names))
		return nil
	})
	return X, y, err
}

// scale fits the scaler for mode on all of X. The scaler is nil for ScaleNone.
func (r *run) scale(mode preprocessing.ScaleMode, X mat.Matrix) (model.InverseTransformer, mat.Matrix, error) {
	var scaler model.InverseTransformer
	out := X
	err := r.stage(StageScale, func() error {
		s, err := preprocessing.NewScaler(mode)
		if err != nil {
			return err
		}
		r.note(log.ScaleKey, string(mode))
		if s == nil {
			return nil
		}
		scaled, err := s.FitTransform(X)
		if err != nil {
			return err
		}
		scaler, out = s, scaled
		return nil
	})
	return scaler, out, err
}

func (r *run) construct(overrides model.Params) (model.Estimator, error) {
	var est model.Estimator
	err := r.stage(StageConstruct, func() error {
		e, err := factory.Create(r.family, r.model, overrides)
		if err != nil {
			return err
		}
		est = e
		r.note(log.HyperParamsKey, model.Params(e.GetParams()).String())
		return nil
	})
	return est, err
}

func (r *run) persist(out Output, est model.Estimator, scaler model.InverseTransformer) ([]string, error) {
	var artifacts []string
	err := r.stage(StagePersist, func() error {
		store := out.store()
		names := out.names(r.model+"_model", r.model+"_scaler")
		if err := model.SaveEstimator(store, names[0], est); err != nil {
			return err
		}
		artifacts = append(artifacts, names[0])
		if scaler != nil {
			if err := model.SaveModel(store, names[1], &scaler); err != nil {
				return err
			}
			artifacts = append(artifacts, names[1])
		}
		r.note(log.ArtifactKey, strings.Join(artifacts, ","))
		return nil
	})
	return artifacts, err
}

func (r *run) result(est model.Estimator, scaler model.InverseTransformer) *Result {
	return &Result{
		RunID:     r.id,
		Family:    r.family,
		ModelName: r.model,
		Model:     est,
		Scaler:    scaler,
	}
}
