package svm

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

func blobs(perClass int, centers [][]float64, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	d := len(centers[0])
	X := mat.NewDense(perClass*len(centers), d, nil)
	y := mat.NewDense(perClass*len(centers), 1, nil)
	for c, center := range centers {
		for i := 0; i < perClass; i++ {
			row := c*perClass + i
			for j := 0; j < d; j++ {
				X.Set(row, j, center[j]+0.4*rng.NormFloat64())
			}
			y.Set(row, 0, float64(c))
		}
	}
	return X, y
}

// rings puts class 0 inside radius 1 and class 1 on radius 3.
func rings(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(2*n, 2, nil)
	y := mat.NewDense(2*n, 1, nil)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		X.Set(i, 0, 0.5*math.Cos(a))
		X.Set(i, 1, 0.5*math.Sin(a))
		X.Set(n+i, 0, 3*math.Cos(a))
		X.Set(n+i, 1, 3*math.Sin(a))
		y.Set(n+i, 0, 1)
	}
	return X, y
}

func TestSVC_LinearBinary(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		4, 4,
		5, 4,
		4, 5,
	})
	y := mat.NewDense(6, 1, []float64{-1, -1, -1, 1, 1, 1})

	p := DefaultSVCParams()
	p.Kernel = KernelLinear
	svc := NewSVC(p)
	require.NoError(t, svc.Fit(X, y))

	assert.Equal(t, []float64{-1, 1}, svc.Classes())
	require.Len(t, svc.Machines, 1)
	assert.Greater(t, svc.NSupport()[0], 1)

	pred, err := svc.Predict(mat.NewDense(2, 2, []float64{0.5, 0.5, 4.5, 4.5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 1}, model.Column(pred))

	dec, err := svc.DecisionFunction(X)
	require.NoError(t, err)
	r, c := dec.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 1, c)
	for i := 0; i < 3; i++ {
		assert.Less(t, dec.At(i, 0), 0.0)
		assert.Greater(t, dec.At(i+3, 0), 0.0)
	}
}

func TestSVC_RBFRings(t *testing.T) {
	X, y := rings(20)
	p := DefaultSVCParams()
	p.C = 10
	svc := NewSVC(p)
	require.NoError(t, svc.Fit(X, y))

	acc, err := svc.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestSVC_Multiclass(t *testing.T) {
	X, y := blobs(15, [][]float64{{0, 0}, {5, 0}, {0, 5}}, 3)
	svc := NewSVC(DefaultSVCParams())
	require.NoError(t, svc.Fit(X, y))

	assert.Len(t, svc.Machines, 3)
	acc, err := svc.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.95)

	dec, err := svc.DecisionFunction(X)
	require.NoError(t, err)
	_, c := dec.Dims()
	assert.Equal(t, 3, c)
}

func TestSVC_ProbabilityGate(t *testing.T) {
	X, y := blobs(10, [][]float64{{0, 0}, {4, 4}}, 5)

	svc := NewSVC(DefaultSVCParams())
	require.NoError(t, svc.Fit(X, y))
	_, ok := model.ProbaOf(svc)
	assert.False(t, ok)
	_, err := svc.PredictProba(X)
	assert.Error(t, err)

	p := DefaultSVCParams()
	p.Probability = true
	svc = NewSVC(p)
	require.NoError(t, svc.Fit(X, y))
	pp, ok := model.ProbaOf(svc)
	require.True(t, ok)
	proba, err := pp.PredictProba(X)
	require.NoError(t, err)

	pred, err := svc.Predict(X)
	require.NoError(t, err)
	r, _ := proba.Dims()
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
		best := 0.0
		if proba.At(i, 1) > proba.At(i, 0) {
			best = 1
		}
		assert.Equal(t, pred.At(i, 0), best, "row %d", i)
	}
}

func TestSVC_NotFitted(t *testing.T) {
	_, err := NewSVC(DefaultSVCParams()).Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestSVC_SingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})
	assert.Error(t, NewSVC(DefaultSVCParams()).Fit(X, y))
}

func TestSVC_ClassWeightAndMaxIter(t *testing.T) {
	X, y := blobs(10, [][]float64{{0, 0}, {3, 3}}, 9)
	p := DefaultSVCParams()
	p.ClassWeight = "balanced"
	p.MaxIter = 1
	svc := NewSVC(p)
	require.NoError(t, svc.Fit(X, y))
	assert.Equal(t, 1, svc.Machines[0].NIter)
}

func TestResolveGamma(t *testing.T) {
	X := [][]float64{{0, 2}, {2, 0}}
	tests := []struct {
		name    string
		gamma   interface{}
		want    float64
		wantErr bool
	}{
		{name: "scale", gamma: "scale", want: 0.5},
		{name: "auto", gamma: "auto", want: 0.5},
		{name: "float", gamma: 0.1, want: 0.1},
		{name: "int", gamma: 2, want: 2},
		{name: "negative", gamma: -1.0, wantErr: true},
		{name: "unknown", gamma: "median", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveGamma(tt.gamma, X)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestKernelCacheEvicts(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}}
	c := newKernelCache(X, Kernel{Type: KernelLinear}, 0)
	for i := range X {
		c.row(i)
	}
	assert.Len(t, c.rows, 2)
	assert.Equal(t, []float64{0, 2, 4}, c.row(2))
}

func TestRegisteredSVC(t *testing.T) {
	ctor, err := model.ResolveType(TypeSVC)
	require.NoError(t, err)

	est, err := ctor(model.Params{
		"C": 1.0, "kernel": "rbf", "degree": 3, "gamma": "scale", "coef0": 0.0,
		"shrinking": true, "probability": false, "tol": 1e-3, "cache_size": 200,
		"class_weight": "", "verbose": true, "max_iter": -1,
		"decision_function_shape": "ovr", "break_ties": false, "random_state": 42,
	})
	require.NoError(t, err)
	svc := est.(*SVC)
	assert.Equal(t, 1, svc.Params.Verbose)
	assert.Equal(t, int64(42), svc.Params.RandomState)

	for _, bad := range []model.Params{
		{"kernel": "laplace"},
		{"gamma": -0.5},
		{"decision_function_shape": "ovo"},
		{"C": 0},
	} {
		_, err := ctor(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestSVC_GobRoundTrip(t *testing.T) {
	X, y := blobs(10, [][]float64{{0, 0}, {4, 4}}, 2)
	svc := NewSVC(DefaultSVCParams())
	require.NoError(t, svc.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(svc, &buf))
	loaded := &SVC{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	want, err := svc.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, model.Column(want), model.Column(got))
}
