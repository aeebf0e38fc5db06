// Package mixture provides Gaussian mixture models fitted by expectation-maximization.
package mixture

import (
	"encoding/gob"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
	"github.com/YuminosukeSato/mlkit/sklearn/cluster"
)

// TypeGaussianMixture is the type reference registered for GaussianMixture.
const TypeGaussianMixture = "mixture.GaussianMixture"

// Covariance types.
const (
	CovFull      = "full"
	CovTied      = "tied"
	CovDiag      = "diag"
	CovSpherical = "spherical"
)

func init() {
	gob.Register(&GaussianMixture{})
	model.RegisterType(TypeGaussianMixture, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultGaussianMixtureParams()
		if err := p.Decode("GaussianMixture", &cfg); err != nil {
			return nil, err
		}
		return NewGaussianMixture(cfg), nil
	})
}

// GaussianMixtureParams holds the hyperparameters of GaussianMixture.
type GaussianMixtureParams struct {
	NComponents     int     `mapstructure:"n_components" validate:"gte=1"`
	CovarianceType  string  `mapstructure:"covariance_type" validate:"oneof=full tied diag spherical"`
	Tol             float64 `mapstructure:"tol" validate:"gte=0"`
	RegCovar        float64 `mapstructure:"reg_covar" validate:"gte=0"`
	MaxIter         int     `mapstructure:"max_iter" validate:"gte=1"`
	NInit           int     `mapstructure:"n_init" validate:"gte=1"`
	InitParams      string  `mapstructure:"init_params" validate:"oneof=kmeans k-means++ random random_from_data"`
	RandomState     int64   `mapstructure:"random_state"`
	Verbose         int     `mapstructure:"verbose"`
	VerboseInterval int     `mapstructure:"verbose_interval" validate:"gte=1"`
}

// DefaultGaussianMixtureParams returns scikit-learn's defaults.
func DefaultGaussianMixtureParams() GaussianMixtureParams {
	return GaussianMixtureParams{
		NComponents:     1,
		CovarianceType:  CovFull,
		Tol:             1e-3,
		RegCovar:        1e-6,
		MaxIter:         100,
		NInit:           1,
		InitParams:      "kmeans",
		VerboseInterval: 10,
	}
}

// GaussianMixture is a mixture of multivariate normals. Covariances are stored
// as dense row-major d×d matrices whatever the covariance type, so tied models
// repeat one matrix and diag/spherical ones are zero off the diagonal.
type GaussianMixture struct {
	model.BaseEstimator

	Params GaussianMixtureParams

	Weights     []float64
	Means       [][]float64
	Covariances [][]float64
	Converged   bool
	NIter       int
	LowerBound  float64
	LabelsFit   []int
}

// NewGaussianMixture creates an unfitted mixture.
func NewGaussianMixture(params GaussianMixtureParams) *GaussianMixture {
	return &GaussianMixture{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (g *GaussianMixture) GetParams() map[string]interface{} {
	return model.ParamsOf(g.Params)
}

// Labels returns the most probable component of every training sample.
func (g *GaussianMixture) Labels() []int {
	return g.LabelsFit
}

type emResult struct {
	weights    []float64
	means      [][]float64
	covs       [][]float64
	lowerBound float64
	nIter      int
	converged  bool
	err        error
}

// Fit runs EM n_init times and keeps the run with the highest likelihood bound.
func (g *GaussianMixture) Fit(X, _ mat.Matrix) error {
	r, c := 0, 0
	if X != nil {
		r, c = X.Dims()
	}
	if r == 0 || c == 0 {
		return errors.NewValueError("GaussianMixture.Fit", "X must not be empty")
	}
	if r < g.Params.NComponents {
		return errors.NewValueError("GaussianMixture.Fit",
			"expected n_samples >= n_components")
	}
	rows := model.Rows(X)

	rng := model.NewRand(g.Params.RandomState)
	seeds := make([]int64, g.Params.NInit)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	runs := make([]emResult, g.Params.NInit)
	err := parallel.ForEach(len(runs), -1, func(i int) error {
		runs[i] = g.em(rows, seeds[i])
		return runs[i].err
	})
	if err != nil {
		return err
	}
	best := 0
	for i := range runs {
		if runs[i].lowerBound > runs[best].lowerBound {
			best = i
		}
	}
	if !runs[best].converged {
		errors.Warn(errors.NewConvergenceWarning("GaussianMixture", runs[best].nIter,
			"initialization did not converge; try different init parameters, or increase max_iter, tol or check for degenerate data"))
	}

	g.Weights = runs[best].weights
	g.Means = runs[best].means
	g.Covariances = runs[best].covs
	g.LowerBound = runs[best].lowerBound
	g.NIter = runs[best].nIter
	g.Converged = runs[best].converged
	g.SetDimensions(c, r)
	g.SetFitted()

	resp, _, err := g.estep(rows, g.Weights, g.Means, g.Covariances)
	if err != nil {
		return err
	}
	g.LabelsFit = model.ArgmaxRows(resp)
	return nil
}

func (g *GaussianMixture) em(rows [][]float64, seed int64) emResult {
	resp, err := g.initResponsibilities(rows, seed)
	if err != nil {
		return emResult{err: err}
	}
	logger := log.GetLoggerWithName("mixture").With(log.ModelNameKey, "GaussianMixture")

	res := emResult{lowerBound: math.Inf(-1)}
	res.weights, res.means, res.covs = g.mstep(rows, resp)
	for iter := 1; iter <= g.Params.MaxIter; iter++ {
		prev := res.lowerBound
		var lb float64
		resp, lb, err = g.estep(rows, res.weights, res.means, res.covs)
		if err != nil {
			return emResult{err: err}
		}
		res.weights, res.means, res.covs = g.mstep(rows, resp)
		res.lowerBound, res.nIter = lb, iter
		if g.Params.Verbose > 0 && iter%g.Params.VerboseInterval == 0 {
			logger.Info("em iteration",
				log.OperationKey, log.OperationFit,
				log.IterationKey, iter,
				"lower_bound", lb,
			)
		}
		if math.Abs(lb-prev) < g.Params.Tol {
			res.converged = true
			break
		}
	}
	// one last E-step so the bound matches the returned parameters
	_, res.lowerBound, err = g.estep(rows, res.weights, res.means, res.covs)
	res.err = err
	return res
}

// initResponsibilities builds the starting soft assignment of samples.
func (g *GaussianMixture) initResponsibilities(rows [][]float64, seed int64) (*mat.Dense, error) {
	n, k := len(rows), g.Params.NComponents
	resp := mat.NewDense(n, k, nil)
	rng := rand.New(rand.NewSource(seed))

	switch g.Params.InitParams {
	case "random":
		for i := 0; i < n; i++ {
			var sum float64
			row := make([]float64, k)
			for j := range row {
				row[j] = rng.Float64()
				sum += row[j]
			}
			for j := range row {
				row[j] /= sum
			}
			resp.SetRow(i, row)
		}
		return resp, nil
	case "random_from_data":
		centers := make([][]float64, k)
		for j, idx := range rng.Perm(n)[:k] {
			centers[j] = rows[idx]
		}
		for i, row := range rows {
			resp.Set(i, closest(row, centers), 1)
		}
		return resp, nil
	}

	p := cluster.DefaultKMeansParams()
	p.NClusters = k
	p.NInit = 1
	p.RandomState = seed
	if g.Params.InitParams == "k-means++" {
		// centers only; one assignment pass
		p.MaxIter = 1
	}
	km := cluster.NewKMeans(p)
	if err := km.Fit(mat.NewDense(n, len(rows[0]), flatten(rows)), nil); err != nil {
		return nil, err
	}
	for i, l := range km.Labels() {
		resp.Set(i, l, 1)
	}
	return resp, nil
}

// mstep estimates weights, means and covariances from responsibilities.
func (g *GaussianMixture) mstep(rows [][]float64, resp *mat.Dense) ([]float64, [][]float64, [][]float64) {
	n, d, k := len(rows), len(rows[0]), g.Params.NComponents
	const eps = 10 * 2.220446049250313e-16

	nk := make([]float64, k)
	means := make([][]float64, k)
	for j := 0; j < k; j++ {
		means[j] = make([]float64, d)
		for i, row := range rows {
			r := resp.At(i, j)
			nk[j] += r
			for f, v := range row {
				means[j][f] += r * v
			}
		}
		nk[j] += eps
		for f := range means[j] {
			means[j][f] /= nk[j]
		}
	}

	covs := make([][]float64, k)
	for j := 0; j < k; j++ {
		cov := make([]float64, d*d)
		for i, row := range rows {
			r := resp.At(i, j)
			for a := 0; a < d; a++ {
				da := row[a] - means[j][a]
				for b := a; b < d; b++ {
					cov[a*d+b] += r * da * (row[b] - means[j][b])
				}
			}
		}
		for a := 0; a < d; a++ {
			for b := a; b < d; b++ {
				cov[a*d+b] /= nk[j]
				cov[b*d+a] = cov[a*d+b]
			}
		}
		covs[j] = cov
	}

	switch g.Params.CovarianceType {
	case CovTied:
		tied := make([]float64, d*d)
		for j := range covs {
			for t := range tied {
				tied[t] += nk[j] * covs[j][t] / float64(n)
			}
		}
		for j := range covs {
			covs[j] = append([]float64(nil), tied...)
		}
	case CovDiag, CovSpherical:
		for j := range covs {
			var mean float64
			for a := 0; a < d; a++ {
				mean += covs[j][a*d+a]
			}
			mean /= float64(d)
			diag := make([]float64, d*d)
			for a := 0; a < d; a++ {
				diag[a*d+a] = covs[j][a*d+a]
				if g.Params.CovarianceType == CovSpherical {
					diag[a*d+a] = mean
				}
			}
			covs[j] = diag
		}
	}
	for j := range covs {
		for a := 0; a < d; a++ {
			covs[j][a*d+a] += g.Params.RegCovar
		}
	}

	weights := make([]float64, k)
	for j := range weights {
		weights[j] = nk[j] / float64(n)
	}
	return weights, means, covs
}

// estep returns the responsibilities and the mean log-likelihood.
func (g *GaussianMixture) estep(rows [][]float64, weights []float64, means, covs [][]float64) (*mat.Dense, float64, error) {
	weighted, err := weightedLogProb(rows, weights, means, covs)
	if err != nil {
		return nil, 0, err
	}
	n, k := weighted.Dims()
	resp := mat.NewDense(n, k, nil)
	var total float64
	for i := 0; i < n; i++ {
		row := weighted.RawRowView(i)
		norm := errors.LogSumExp(row)
		total += norm
		for j, v := range row {
			resp.Set(i, j, math.Exp(v-norm))
		}
	}
	return resp, total / float64(n), nil
}

// weightedLogProb returns log(w_j) + log N(x_i | mu_j, Sigma_j) for every pair.
func weightedLogProb(rows [][]float64, weights []float64, means, covs [][]float64) (*mat.Dense, error) {
	d := len(means[0])
	out := mat.NewDense(len(rows), len(weights), nil)
	for j := range weights {
		normal, ok := distmv.NewNormal(means[j], mat.NewSymDense(d, append([]float64(nil), covs[j]...)), nil)
		if !ok {
			return nil, errors.NewValueError("GaussianMixture",
				"fitting the mixture model failed because some components have ill-defined empirical covariance; try increasing reg_covar")
		}
		lw := math.Log(weights[j])
		for i, row := range rows {
			out.Set(i, j, lw+normal.LogProb(row))
		}
	}
	return out, nil
}

func (g *GaussianMixture) check(method string, X mat.Matrix) ([][]float64, error) {
	if err := g.RequireFitted("GaussianMixture", method); err != nil {
		return nil, err
	}
	if err := g.CheckFeatures("GaussianMixture."+method, X); err != nil {
		return nil, err
	}
	return model.Rows(X), nil
}

// PredictProba returns the posterior probability of each component.
func (g *GaussianMixture) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	rows, err := g.check("PredictProba", X)
	if err != nil {
		return nil, err
	}
	resp, _, err := g.estep(rows, g.Weights, g.Means, g.Covariances)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Predict returns the most probable component of every row.
func (g *GaussianMixture) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	idx := model.ArgmaxRows(proba)
	out := make([]float64, len(idx))
	for i, v := range idx {
		out[i] = float64(v)
	}
	return model.ColumnVector(out), nil
}

// ScoreSamples returns the log-likelihood of every row.
func (g *GaussianMixture) ScoreSamples(X mat.Matrix) ([]float64, error) {
	rows, err := g.check("ScoreSamples", X)
	if err != nil {
		return nil, err
	}
	weighted, err := weightedLogProb(rows, g.Weights, g.Means, g.Covariances)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = errors.LogSumExp(weighted.RawRowView(i))
	}
	return out, nil
}

// Score returns the mean log-likelihood of X.
func (g *GaussianMixture) Score(X, _ mat.Matrix) (float64, error) {
	ll, err := g.ScoreSamples(X)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range ll {
		sum += v
	}
	return sum / float64(len(ll)), nil
}

// nParameters counts the free parameters of the fitted model.
func (g *GaussianMixture) nParameters() int {
	k, d := g.Params.NComponents, g.NFeatures
	var cov int
	switch g.Params.CovarianceType {
	case CovFull:
		cov = k * d * (d + 1) / 2
	case CovTied:
		cov = d * (d + 1) / 2
	case CovDiag:
		cov = k * d
	default:
		cov = k
	}
	return cov + k*d + k - 1
}

// BIC returns the Bayesian information criterion on X; lower is better.
func (g *GaussianMixture) BIC(X mat.Matrix) (float64, error) {
	score, err := g.Score(X, nil)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	return -2*score*float64(n) + float64(g.nParameters())*math.Log(float64(n)), nil
}

// AIC returns the Akaike information criterion on X; lower is better.
func (g *GaussianMixture) AIC(X mat.Matrix) (float64, error) {
	score, err := g.Score(X, nil)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	return -2*score*float64(n) + 2*float64(g.nParameters()), nil
}

func closest(row []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centers {
		var s float64
		for f := range row {
			s += (row[f] - c[f]) * (row[f] - c[f])
		}
		if s < bestDist {
			best, bestDist = j, s
		}
	}
	return best
}

func flatten(rows [][]float64) []float64 {
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
