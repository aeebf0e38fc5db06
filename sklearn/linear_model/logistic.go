package linear_model

import (
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// TypeLogisticRegression is the type reference registered for LogisticRegression.
const TypeLogisticRegression = "linear_model.LogisticRegression"

func init() {
	gob.Register(&LogisticRegression{})
	model.RegisterType(TypeLogisticRegression, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultLogisticRegressionParams()
		if err := p.Decode("LogisticRegression", &cfg); err != nil {
			return nil, err
		}
		return NewLogisticRegression(cfg), nil
	})
}

// LogisticRegressionParams holds the hyperparameters of LogisticRegression.
type LogisticRegressionParams struct {
	Penalty      string  `mapstructure:"penalty" validate:"oneof=l1 l2 elasticnet none"`
	C            float64 `mapstructure:"C" validate:"gt=0"`
	Solver       string  `mapstructure:"solver" validate:"oneof=lbfgs liblinear newton-cg newton-cholesky sag saga"`
	MaxIter      int     `mapstructure:"max_iter" validate:"gt=0"`
	Tol          float64 `mapstructure:"tol" validate:"gt=0"`
	FitIntercept bool    `mapstructure:"fit_intercept"`
	ClassWeight  string  `mapstructure:"class_weight" validate:"omitempty,oneof=balanced none"`
	L1Ratio      float64 `mapstructure:"l1_ratio" validate:"gte=0,lte=1"`
	RandomState  int64   `mapstructure:"random_state"`
}

// DefaultLogisticRegressionParams returns scikit-learn's defaults.
func DefaultLogisticRegressionParams() LogisticRegressionParams {
	return LogisticRegressionParams{
		Penalty:      "l2",
		C:            1.0,
		Solver:       "lbfgs",
		MaxIter:      100,
		Tol:          1e-4,
		FitIntercept: true,
		L1Ratio:      0.5,
	}
}

// LogisticRegression is a regularized logistic regression classifier.
//
// Binary problems fit a single weight vector; multiclass problems are fit
// one-vs-rest. l2 and unpenalized models are solved with damped Newton
// iterations, l1 and elasticnet with proximal gradient descent. The solver
// name is accepted for compatibility and does not change the optimizer.
type LogisticRegression struct {
	model.BaseEstimator

	Params LogisticRegressionParams

	// Fitted state
	ClassLabels []float64
	Coef        [][]float64 // one row for binary problems, n_classes rows otherwise
	Intercept   []float64
	NIter       []int
}

// NewLogisticRegression creates an unfitted LogisticRegression.
func NewLogisticRegression(params LogisticRegressionParams) *LogisticRegression {
	return &LogisticRegression{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return model.ParamsOf(lr.Params)
}

// SetParams updates hyperparameters; the model must be refit afterwards.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	cfg := lr.Params
	if err := model.Params(params).Decode("LogisticRegression", &cfg); err != nil {
		return err
	}
	lr.Params = cfg
	lr.Reset()
	return nil
}

// Classes returns the sorted class labels seen during Fit.
func (lr *LogisticRegression) Classes() []float64 {
	return lr.ClassLabels
}

// Fit trains the classifier.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	classes, encoded := model.EncodeLabels(model.Column(y))
	if err := model.RequireClasses("LogisticRegression.Fit", classes); err != nil {
		return err
	}
	weights, err := model.ClassWeights(lr.Params.ClassWeight, encoded, len(classes))
	if err != nil {
		return err
	}

	design := lr.design(X)
	nModels := len(classes)
	if nModels == 2 {
		nModels = 1
	}

	lr.ClassLabels = classes
	lr.Coef = make([][]float64, nModels)
	lr.Intercept = make([]float64, nModels)
	lr.NIter = make([]int, nModels)

	target := make([]float64, nSamples)
	for k := 0; k < nModels; k++ {
		positive := k
		if nModels == 1 {
			positive = 1
		}
		for i, c := range encoded {
			target[i] = 0
			if c == positive {
				target[i] = 1
			}
		}
		w, iters, err := lr.fitBinary(design, target, weights)
		if err != nil {
			return errors.Wrapf(err, "LogisticRegression: class %v", classes[positive])
		}
		lr.Coef[k] = w[:nFeatures]
		if lr.Params.FitIntercept {
			lr.Intercept[k] = w[nFeatures]
		}
		lr.NIter[k] = iters
	}

	lr.SetDimensions(nFeatures, nSamples)
	lr.SetFitted()
	return nil
}

// design returns X with an appended column of ones when an intercept is fit.
func (lr *LogisticRegression) design(X mat.Matrix) *mat.Dense {
	r, c := X.Dims()
	cols := c
	if lr.Params.FitIntercept {
		cols++
	}
	d := mat.NewDense(r, cols, nil)
	d.Slice(0, r, 0, c).(*mat.Dense).Copy(X)
	if lr.Params.FitIntercept {
		for i := 0; i < r; i++ {
			d.Set(i, c, 1)
		}
	}
	return d
}

// penalties splits 1/(C*n) into its l2 and l1 parts.
func (lr *LogisticRegression) penalties(nSamples int) (l2, l1 float64) {
	lambda := 1 / (lr.Params.C * float64(nSamples))
	switch lr.Params.Penalty {
	case "l2":
		return lambda, 0
	case "l1":
		return 0, lambda
	case "elasticnet":
		return lambda * (1 - lr.Params.L1Ratio), lambda * lr.Params.L1Ratio
	default:
		return 0, 0
	}
}

// objective is the weighted mean log-loss plus the smooth l2 term.
// The last coordinate is the intercept when one is fit and is never penalized.
type objective struct {
	X         *mat.Dense
	y, weight []float64
	l2        float64
	nPen      int
	wsum      float64
}

func (o *objective) margins(w []float64) []float64 {
	z := mat.NewVecDense(len(o.y), nil)
	z.MulVec(o.X, mat.NewVecDense(len(w), w))
	return z.RawVector().Data
}

func (o *objective) value(w []float64) float64 {
	z := o.margins(w)
	var loss float64
	for i, zi := range z {
		// log(1+exp(z)) - y*z computed stably
		loss += o.weight[i] * (softplus(zi) - o.y[i]*zi)
	}
	loss /= o.wsum
	return loss + 0.5*o.l2*floats.Dot(w[:o.nPen], w[:o.nPen])
}

func (o *objective) gradient(w []float64) (grad, prob []float64) {
	z := o.margins(w)
	prob = make([]float64, len(z))
	resid := make([]float64, len(z))
	for i, zi := range z {
		prob[i] = errors.Sigmoid(zi)
		resid[i] = o.weight[i] * (prob[i] - o.y[i]) / o.wsum
	}
	g := mat.NewVecDense(len(w), nil)
	g.MulVec(o.X.T(), mat.NewVecDense(len(resid), resid))
	grad = g.RawVector().Data
	for j := 0; j < o.nPen; j++ {
		grad[j] += o.l2 * w[j]
	}
	return grad, prob
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func (lr *LogisticRegression) fitBinary(X *mat.Dense, y, weight []float64) ([]float64, int, error) {
	nSamples, dim := X.Dims()
	l2, l1 := lr.penalties(nSamples)
	obj := &objective{X: X, y: y, weight: weight, l2: l2, nPen: dim, wsum: floats.Sum(weight)}
	if lr.Params.FitIntercept {
		obj.nPen = dim - 1
	}
	w := make([]float64, dim)

	var iter int
	var converged bool
	if l1 > 0 {
		iter, converged = lr.proximalGradient(obj, w, l1)
	} else {
		var err error
		iter, converged, err = lr.newton(obj, w)
		if err != nil {
			return nil, iter, err
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", iter,
			fmt.Sprintf("solver did not reach tol=%g", lr.Params.Tol)))
	}
	return w, iter, nil
}

// newton runs damped Newton iterations with backtracking line search.
func (lr *LogisticRegression) newton(obj *objective, w []float64) (int, bool, error) {
	_, dim := obj.X.Dims()
	// a tiny ridge keeps the Hessian invertible for separable data
	ridge := math.Max(obj.l2, 1e-10)
	f := obj.value(w)
	for iter := 1; iter <= lr.Params.MaxIter; iter++ {
		grad, prob := obj.gradient(w)
		if floats.Norm(grad, math.Inf(1)) < lr.Params.Tol {
			return iter, true, nil
		}

		hess := mat.NewSymDense(dim, nil)
		for i := range prob {
			s := obj.weight[i] * prob[i] * (1 - prob[i]) / obj.wsum
			if s == 0 {
				continue
			}
			row := obj.X.RawRowView(i)
			hess.SymRankOne(hess, s, mat.NewVecDense(dim, row))
		}
		for j := 0; j < dim; j++ {
			add := ridge
			if j >= obj.nPen {
				add = 1e-10
			}
			hess.SetSym(j, j, hess.At(j, j)+add)
		}

		var step mat.VecDense
		var chol mat.Cholesky
		if chol.Factorize(hess) {
			if err := chol.SolveVecTo(&step, mat.NewVecDense(dim, grad)); err != nil {
				return iter, false, errors.Wrap(err, "newton step")
			}
		} else if err := step.SolveVec(hess, mat.NewVecDense(dim, grad)); err != nil {
			return iter, false, errors.NewModelError("LogisticRegression.Fit", "singular Hessian", errors.ErrSingularMatrix)
		}

		// backtracking on the full objective
		t := 1.0
		candidate := make([]float64, dim)
		slope := floats.Dot(grad, step.RawVector().Data)
		for ls := 0; ls < 50; ls++ {
			floats.AddScaledTo(candidate, w, -t, step.RawVector().Data)
			if fc := obj.value(candidate); fc <= f-1e-4*t*slope {
				f = fc
				break
			}
			t /= 2
		}
		copy(w, candidate)
		if err := errors.CheckNumericalStability("LogisticRegression.newton", w, iter); err != nil {
			return iter, false, err
		}
	}
	return lr.Params.MaxIter, false, nil
}

// proximalGradient runs ISTA with backtracking for l1 and elasticnet penalties.
func (lr *LogisticRegression) proximalGradient(obj *objective, w []float64, l1 float64) (int, bool) {
	step := 1.0
	f := obj.value(w)
	candidate := make([]float64, len(w))
	for iter := 1; iter <= lr.Params.MaxIter; iter++ {
		grad, _ := obj.gradient(w)
		for {
			for j := range w {
				v := w[j] - step*grad[j]
				if j < obj.nPen {
					v = softThreshold(v, step*l1)
				}
				candidate[j] = v
			}
			// sufficient decrease for the smooth part
			diff := make([]float64, len(w))
			floats.SubTo(diff, candidate, w)
			fc := obj.value(candidate)
			if fc <= f+floats.Dot(grad, diff)+floats.Dot(diff, diff)/(2*step) || step < 1e-12 {
				f = fc
				break
			}
			step /= 2
		}
		delta := floats.Distance(candidate, w, math.Inf(1))
		copy(w, candidate)
		if delta < lr.Params.Tol*step {
			return iter, true
		}
		// allow the step to grow back
		step *= 1.5
	}
	return lr.Params.MaxIter, false
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

// DecisionFunction returns the signed distance to each class boundary:
// shape (n_samples, 1) for binary problems and (n_samples, n_classes) otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	if err := lr.CheckFeatures("LogisticRegression.DecisionFunction", X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	coef := mat.NewDense(len(lr.Coef), lr.NFeatures, nil)
	for k, row := range lr.Coef {
		coef.SetRow(k, row)
	}
	var scores mat.Dense
	scores.Mul(X, coef.T())
	for i := 0; i < r; i++ {
		for k := range lr.Coef {
			scores.Set(i, k, scores.At(i, k)+lr.Intercept[k])
		}
	}
	return &scores, nil
}

// PredictProba returns class probabilities. One-vs-rest scores are normalized
// so each row sums to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, _ := scores.Dims()
	proba := mat.NewDense(r, len(lr.ClassLabels), nil)
	for i := 0; i < r; i++ {
		if len(lr.Coef) == 1 {
			p := errors.Sigmoid(scores.At(i, 0))
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}
		var sum float64
		for k := range lr.ClassLabels {
			p := errors.Sigmoid(scores.At(i, k))
			proba.Set(i, k, p)
			sum += p
		}
		for k := range lr.ClassLabels {
			proba.Set(i, k, proba.At(i, k)/sum)
		}
	}
	return proba, nil
}

// Predict returns the most probable class label for each sample.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.DecodeClasses(lr.ClassLabels, model.ArgmaxRows(proba)), nil
}

// Score returns the mean accuracy on the given data.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	return model.AccuracyScore(lr, X, y)
}
