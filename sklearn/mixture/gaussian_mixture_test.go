package mixture

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
)

// twoBlobs draws n points around (0,0) and n around (8,8).
func twoBlobs(n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(2*n, 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.NormFloat64())
		X.Set(i, 1, 0.5*rng.NormFloat64())
		X.Set(n+i, 0, 8+0.5*rng.NormFloat64())
		X.Set(n+i, 1, 8+rng.NormFloat64())
	}
	return X
}

func TestGaussianMixture_CovarianceTypes(t *testing.T) {
	X := twoBlobs(40, 1)
	for _, cov := range []string{CovFull, CovTied, CovDiag, CovSpherical} {
		t.Run(cov, func(t *testing.T) {
			p := DefaultGaussianMixtureParams()
			p.NComponents = 2
			p.CovarianceType = cov
			p.RandomState = 42
			gm := NewGaussianMixture(p)
			require.NoError(t, gm.Fit(X, nil))

			assert.True(t, gm.Converged)
			assert.InDelta(t, 1.0, gm.Weights[0]+gm.Weights[1], 1e-9)
			assert.InDelta(t, 0.5, gm.Weights[0], 0.05)

			labels := gm.Labels()
			for i := 1; i < 40; i++ {
				assert.Equal(t, labels[0], labels[i])
				assert.Equal(t, labels[40], labels[40+i])
			}
			assert.NotEqual(t, labels[0], labels[40])

			proba, err := gm.PredictProba(X)
			require.NoError(t, err)
			r, c := proba.Dims()
			assert.Equal(t, 80, r)
			assert.Equal(t, 2, c)
			for i := 0; i < r; i++ {
				assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
			}
		})
	}
}

func TestGaussianMixture_DiagonalStructure(t *testing.T) {
	X := twoBlobs(30, 2)
	for _, cov := range []string{CovDiag, CovSpherical} {
		p := DefaultGaussianMixtureParams()
		p.NComponents = 2
		p.CovarianceType = cov
		gm := NewGaussianMixture(p)
		require.NoError(t, gm.Fit(X, nil))
		for _, c := range gm.Covariances {
			assert.Equal(t, 0.0, c[1])
			assert.Equal(t, 0.0, c[2])
			if cov == CovSpherical {
				assert.Equal(t, c[0], c[3])
			}
		}
	}

	p := DefaultGaussianMixtureParams()
	p.NComponents = 2
	p.CovarianceType = CovTied
	gm := NewGaussianMixture(p)
	require.NoError(t, gm.Fit(X, nil))
	assert.Equal(t, gm.Covariances[0], gm.Covariances[1])
}

func TestGaussianMixture_InitParams(t *testing.T) {
	X := twoBlobs(30, 3)
	for _, init := range []string{"kmeans", "k-means++", "random", "random_from_data"} {
		p := DefaultGaussianMixtureParams()
		p.NComponents = 2
		p.InitParams = init
		p.NInit = 2
		p.RandomState = 7
		a, b := NewGaussianMixture(p), NewGaussianMixture(p)
		require.NoError(t, a.Fit(X, nil), init)
		require.NoError(t, b.Fit(X, nil), init)
		assert.Equal(t, a.Means, b.Means, init)
		if init == "kmeans" || init == "k-means++" {
			assert.NotEqual(t, a.Labels()[0], a.Labels()[30], init)
		}
	}
}

func TestGaussianMixture_ScoreAndCriteria(t *testing.T) {
	X := twoBlobs(40, 4)
	fit := func(k int) *GaussianMixture {
		p := DefaultGaussianMixtureParams()
		p.NComponents = k
		gm := NewGaussianMixture(p)
		require.NoError(t, gm.Fit(X, nil))
		return gm
	}
	one, two := fit(1), fit(2)

	s1, err := one.Score(X, nil)
	require.NoError(t, err)
	s2, err := two.Score(X, nil)
	require.NoError(t, err)
	assert.Greater(t, s2, s1)
	assert.InDelta(t, two.LowerBound, s2, 1e-9)

	b1, err := one.BIC(X)
	require.NoError(t, err)
	b2, err := two.BIC(X)
	require.NoError(t, err)
	assert.Less(t, b2, b1)

	a2, err := two.AIC(X)
	require.NoError(t, err)
	assert.Less(t, a2, b2)

	ll, err := two.ScoreSamples(X)
	require.NoError(t, err)
	assert.Len(t, ll, 80)
}

func TestGaussianMixture_Errors(t *testing.T) {
	p := DefaultGaussianMixtureParams()
	p.NComponents = 3
	gm := NewGaussianMixture(p)
	assert.Error(t, gm.Fit(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), nil))

	_, err := gm.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)

	p.NComponents = 1
	gm = NewGaussianMixture(p)
	require.NoError(t, gm.Fit(twoBlobs(5, 1), nil))
	_, err = gm.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestRegisteredGaussianMixture(t *testing.T) {
	ctor, err := model.ResolveType(TypeGaussianMixture)
	require.NoError(t, err)
	est, err := ctor(model.Params{
		"random_state": 42, "n_components": 3, "covariance_type": "full",
		"tol": 1e-3, "reg_covar": 1e-6, "max_iter": 100, "n_init": 1, "init_params": "kmeans",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, est.(*GaussianMixture).Params.NComponents)

	_, err = ctor(model.Params{"covariance_type": "banded"})
	assert.Error(t, err)
	_, err = ctor(model.Params{"n_clusters": 3})
	assert.Error(t, err)
}

func TestGaussianMixture_GobRoundTrip(t *testing.T) {
	X := twoBlobs(20, 5)
	p := DefaultGaussianMixtureParams()
	p.NComponents = 2
	gm := NewGaussianMixture(p)
	require.NoError(t, gm.Fit(X, nil))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(gm, &buf))
	var loaded GaussianMixture
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	want, err := gm.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
