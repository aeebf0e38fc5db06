package linear_model

import (
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// TypeLinearRegression is the type reference registered for LinearRegression.
const TypeLinearRegression = "linear_model.LinearRegression"

func init() {
	gob.Register(&LinearRegression{})
	model.RegisterType(TypeLinearRegression, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultLinearRegressionParams()
		if err := p.Decode("LinearRegression", &cfg); err != nil {
			return nil, err
		}
		return NewLinearRegression(cfg), nil
	})
}

// LinearRegressionParams holds the hyperparameters of LinearRegression.
type LinearRegressionParams struct {
	FitIntercept bool `mapstructure:"fit_intercept"`
	// NJobs is accepted for compatibility; the solve is a single factorization.
	NJobs int `mapstructure:"n_jobs"`
}

// DefaultLinearRegressionParams returns scikit-learn's defaults.
func DefaultLinearRegressionParams() LinearRegressionParams {
	return LinearRegressionParams{FitIntercept: true, NJobs: 1}
}

// LinearRegression is ordinary least squares.
//
// The problem is solved through a thin SVD so rank-deficient designs yield the
// minimum-norm solution instead of an error.
type LinearRegression struct {
	model.BaseEstimator

	Params LinearRegressionParams

	// Fitted state
	Coef          []float64
	InterceptTerm float64
	Rank          int
}

// NewLinearRegression creates an unfitted LinearRegression.
func NewLinearRegression(params LinearRegressionParams) *LinearRegression {
	return &LinearRegression{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return model.ParamsOf(lr.Params)
}

// SetParams updates hyperparameters; the model must be refit afterwards.
func (lr *LinearRegression) SetParams(params map[string]interface{}) error {
	cfg := lr.Params
	if err := model.Params(params).Decode("LinearRegression", &cfg); err != nil {
		return err
	}
	lr.Params = cfg
	lr.Reset()
	return nil
}

// Fit solves the least-squares problem.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures, err := model.CheckXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}

	xc := mat.DenseCopyOf(X)
	yc := mat.DenseCopyOf(y)
	xMean := make([]float64, nFeatures)
	var yMean float64
	if lr.Params.FitIntercept {
		// center so the intercept can be recovered from the means
		for j := 0; j < nFeatures; j++ {
			col := mat.Col(nil, j, xc)
			for _, v := range col {
				xMean[j] += v
			}
			xMean[j] /= float64(nSamples)
		}
		for i := 0; i < nSamples; i++ {
			yMean += yc.At(i, 0)
		}
		yMean /= float64(nSamples)
		for i := 0; i < nSamples; i++ {
			row := xc.RawRowView(i)
			for j := range row {
				row[j] -= xMean[j]
			}
			yc.Set(i, 0, yc.At(i, 0)-yMean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	lr.Rank = svd.Rank(1e-12)
	if lr.Rank == 0 {
		// every feature is constant
		lr.Coef = make([]float64, nFeatures)
	} else {
		var coef mat.Dense
		svd.SolveTo(&coef, yc, lr.Rank)
		lr.Coef = mat.Col(nil, 0, &coef)
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", lr.Coef, 0); err != nil {
		return err
	}
	lr.InterceptTerm = 0
	if lr.Params.FitIntercept {
		lr.InterceptTerm = yMean
		for j, c := range lr.Coef {
			lr.InterceptTerm -= c * xMean[j]
		}
	}

	lr.SetDimensions(nFeatures, nSamples)
	lr.SetFitted()
	return nil
}

// Predict returns X·coef + intercept.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.CheckFeatures("LinearRegression.Predict", X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(lr.Coef), lr.Coef))
	pred := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred.Set(i, 0, out.AtVec(i)+lr.InterceptTerm)
	}
	return pred, nil
}

// Weights returns the fitted coefficients.
func (lr *LinearRegression) Weights() []float64 {
	return append([]float64(nil), lr.Coef...)
}

// Intercept returns the fitted intercept.
func (lr *LinearRegression) Intercept() float64 {
	return lr.InterceptTerm
}

// Score returns the coefficient of determination R².
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return model.R2(lr, X, y)
}

func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.Params.FitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)",
		lr.Params.FitIntercept, lr.NFeatures, lr.Rank)
}
