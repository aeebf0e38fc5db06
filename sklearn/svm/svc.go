package svm

import (
	"encoding/gob"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
)

// TypeSVC is the type reference registered for SVC.
const TypeSVC = "svm.SVC"

func init() {
	gob.Register(&SVC{})
	model.RegisterType(TypeSVC, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultSVCParams()
		if err := p.Decode("SVC", &cfg); err != nil {
			return nil, err
		}
		if err := CheckGamma(cfg.Gamma); err != nil {
			return nil, err
		}
		return NewSVC(cfg), nil
	})
}

// SVCParams holds the hyperparameters of SVC.
//
// shrinking and cache_size only affect training speed; cache_size bounds the
// kernel row cache in megabytes. max_iter -1 means no limit.
type SVCParams struct {
	C                     float64     `mapstructure:"C" validate:"gt=0"`
	Kernel                string      `mapstructure:"kernel" validate:"oneof=linear poly rbf sigmoid"`
	Degree                int         `mapstructure:"degree" validate:"gte=0"`
	Gamma                 interface{} `mapstructure:"gamma"`
	Coef0                 float64     `mapstructure:"coef0"`
	Shrinking             bool        `mapstructure:"shrinking"`
	Probability           bool        `mapstructure:"probability"`
	Tol                   float64     `mapstructure:"tol" validate:"gt=0"`
	CacheSize             float64     `mapstructure:"cache_size" validate:"gt=0"`
	ClassWeight           string      `mapstructure:"class_weight" validate:"omitempty,oneof=balanced none"`
	Verbose               int         `mapstructure:"verbose"`
	MaxIter               int         `mapstructure:"max_iter" validate:"gte=-1"`
	DecisionFunctionShape string      `mapstructure:"decision_function_shape" validate:"oneof=ovr"`
	BreakTies             bool        `mapstructure:"break_ties"`
	RandomState           int64       `mapstructure:"random_state"`
}

// DefaultSVCParams returns scikit-learn's defaults.
func DefaultSVCParams() SVCParams {
	return SVCParams{
		C:                     1,
		Kernel:                KernelRBF,
		Degree:                3,
		Gamma:                 "scale",
		Shrinking:             true,
		Tol:                   1e-3,
		CacheSize:             200,
		MaxIter:               -1,
		DecisionFunctionShape: "ovr",
	}
}

// SVC is a C-support vector classifier. Multiclass problems are decomposed
// one-vs-rest; binary problems train a single machine whose positive side is
// the larger label.
type SVC struct {
	model.BaseEstimator

	Params SVCParams

	ClassLabels []float64
	Kernel      Kernel
	Machines    []*BinarySVM
}

// NewSVC creates an unfitted classifier.
func NewSVC(params SVCParams) *SVC {
	return &SVC{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (s *SVC) GetParams() map[string]interface{} {
	return model.ParamsOf(s.Params)
}

// Classes returns the sorted class labels seen during Fit.
func (s *SVC) Classes() []float64 {
	return s.ClassLabels
}

// ProbabilityEnabled reports whether PredictProba is available.
func (s *SVC) ProbabilityEnabled() bool {
	return s.Params.Probability
}

// NSupport returns the number of support vectors of each machine.
func (s *SVC) NSupport() []int {
	out := make([]int, len(s.Machines))
	for i, m := range s.Machines {
		out[i] = len(m.Vectors)
	}
	return out
}

// Fit solves the dual problem of every binary machine.
func (s *SVC) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	classes, encoded := model.EncodeLabels(model.Column(y))
	if err := model.RequireClasses("SVC.Fit", classes); err != nil {
		return err
	}
	weights, err := model.ClassWeights(s.Params.ClassWeight, encoded, len(classes))
	if err != nil {
		return err
	}
	rows := model.Rows(X)
	gamma, err := ResolveGamma(s.Params.Gamma, rows)
	if err != nil {
		return err
	}
	kernel := Kernel{Type: s.Params.Kernel, Gamma: gamma, Coef0: s.Params.Coef0, Degree: s.Params.Degree}

	diag := make([]float64, nSamples)
	for i, r := range rows {
		diag[i] = kernel.Eval(r, r)
	}
	cost := make([]float64, nSamples)
	for i := range cost {
		cost[i] = s.Params.C * weights[i]
	}

	// the binary case trains one machine with the larger label as +1
	positives := []int{1}
	if len(classes) > 2 {
		positives = make([]int, len(classes))
		for k := range positives {
			positives[k] = k
		}
	}

	logger := log.GetLoggerWithName("svm").With(log.ModelNameKey, "SVC")
	machines := make([]*BinarySVM, len(positives))
	err = parallel.ForEach(len(positives), -1, func(m int) error {
		target := make([]float64, nSamples)
		for i, c := range encoded {
			target[i] = -1
			if c == positives[m] {
				target[i] = 1
			}
		}
		problem := &smoProblem{
			y:       target,
			c:       cost,
			cache:   newKernelCache(rows, kernel, s.Params.CacheSize/float64(len(positives))),
			diag:    diag,
			tol:     s.Params.Tol,
			maxIter: s.Params.MaxIter,
		}
		machine, converged := problem.solve(rows)
		if !converged {
			errors.Warn(errors.NewConvergenceWarning("SVC", machine.NIter,
				"solver terminated early (max_iter reached); consider scaling the data"))
		}
		if s.Params.Verbose > 0 {
			logger.Info("binary machine trained",
				log.OperationKey, log.OperationFit,
				"class", classes[positives[m]],
				log.IterationKey, machine.NIter,
				"support_vectors", len(machine.Vectors),
			)
		}
		machines[m] = machine
		return nil
	})
	if err != nil {
		return err
	}

	s.ClassLabels = classes
	s.Kernel = kernel
	s.Machines = machines
	s.SetDimensions(nFeatures, nSamples)
	s.SetFitted()
	return nil
}

// DecisionFunction returns one column for binary problems (positive for the
// larger label) and one column per class otherwise.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("SVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	if err := s.CheckFeatures("SVC.DecisionFunction", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), len(s.Machines), nil)
	parallel.Parallelize(len(rows), -1, func(start, end int) {
		for i := start; i < end; i++ {
			for m, machine := range s.Machines {
				out.Set(i, m, machine.Decision(s.Kernel, rows[i]))
			}
		}
	})
	return out, nil
}

// Predict returns the label with the largest decision value.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, c := dec.Dims()
	idx := make([]int, r)
	if c == 1 {
		for i := range idx {
			if dec.At(i, 0) > 0 {
				idx[i] = 1
			}
		}
	} else {
		idx = model.ArgmaxRows(dec)
	}
	return model.DecodeClasses(s.ClassLabels, idx), nil
}

// PredictProba maps decision values to probabilities: a logistic for binary
// problems and a softmax over the one-vs-rest scores otherwise. It is only
// available when the model was built with probability=true.
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !s.Params.Probability {
		return nil, errors.NewValueError("SVC.PredictProba", "predict_proba is not available when probability=false")
	}
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, c := dec.Dims()
	out := mat.NewDense(r, len(s.ClassLabels), nil)
	for i := 0; i < r; i++ {
		if c == 1 {
			p := errors.Sigmoid(dec.At(i, 0))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
			continue
		}
		out.SetRow(i, errors.Softmax(mat.Row(nil, i, dec)))
	}
	return out, nil
}

// Score returns the mean accuracy.
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	return model.AccuracyScore(s, X, y)
}
