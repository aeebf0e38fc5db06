package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

func separableBinary() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestLogisticRegression_Binary(t *testing.T) {
	X, y := separableBinary()
	lr := NewLogisticRegression(DefaultLogisticRegressionParams())
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, model.Column(y), model.Column(pred))

	proba, err := lr.PredictProba(mat.NewDense(2, 2, []float64{1, 1, 3, 3}))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(0, 0), 0.5)
	assert.Greater(t, proba.At(1, 1), 0.5)
	assert.Equal(t, []float64{0, 1}, lr.Classes())

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestLogisticRegression_MulticlassOvR(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0.2, 0.1, 0.1, 0.3,
		5, 0, 5.2, 0.1, 4.9, 0.3,
		0, 5, 0.2, 5.1, 0.1, 4.8,
	})
	y := mat.NewDense(9, 1, []float64{2, 2, 2, 4, 4, 4, 7, 7, 7})

	p := DefaultLogisticRegressionParams()
	p.C = 100
	lr := NewLogisticRegression(p)
	require.NoError(t, lr.Fit(X, y))
	assert.Len(t, lr.Coef, 3)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, model.Column(y), model.Column(pred))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 3, c)
}

func TestLogisticRegression_L1(t *testing.T) {
	X, y := separableBinary()
	p := DefaultLogisticRegressionParams()
	p.Penalty = "l1"
	p.Solver = "saga"
	p.MaxIter = 2000
	lr := NewLogisticRegression(p)
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, model.Column(y), model.Column(pred))
}

func TestLogisticRegression_Errors(t *testing.T) {
	lr := NewLogisticRegression(DefaultLogisticRegressionParams())

	_, err := lr.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 1, []float64{1, 1, 1}))
	assert.Error(t, err, "single class must be rejected")

	X, y := separableBinary()
	require.NoError(t, lr.Fit(X, y))
	_, err = lr.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestLogisticRegression_Registered(t *testing.T) {
	ctor, err := model.ResolveType(TypeLogisticRegression)
	require.NoError(t, err)

	est, err := ctor(model.Params{"C": 0.5, "max_iter": 1000, "solver": "liblinear", "random_state": 42})
	require.NoError(t, err)
	params := est.GetParams()
	assert.Equal(t, 0.5, params["C"])
	assert.Equal(t, 1000, params["max_iter"])
	assert.Equal(t, "l2", params["penalty"])

	_, err = ctor(model.Params{"penalty": "l3"})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve), "invalid penalty should fail validation")

	_, err = ctor(model.Params{"not_a_param": 1})
	assert.True(t, errors.As(err, &ve), "unknown key should fail")
}

func TestLinearRegression(t *testing.T) {
	// y = 2*x0 - 3*x1 + 1
	X := mat.NewDense(5, 2, []float64{
		1, 0,
		0, 1,
		2, 1,
		3, 5,
		-1, 2,
	})
	y := mat.NewDense(5, 1, nil)
	for i := 0; i < 5; i++ {
		y.Set(i, 0, 2*X.At(i, 0)-3*X.At(i, 1)+1)
	}

	lr := NewLinearRegression(DefaultLinearRegressionParams())
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2, -3}, lr.Weights(), 1e-9)
	assert.InDelta(t, 1.0, lr.Intercept(), 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	_, err = lr.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// second column duplicates the first
	X := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(DefaultLinearRegressionParams())
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 1, lr.Rank)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, model.Column(y), model.Column(pred), 1e-9)
}
