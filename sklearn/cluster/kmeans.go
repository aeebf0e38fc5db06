// Package cluster provides centroid and density based clustering.
package cluster

import (
	"encoding/gob"
	"math"
	"math/rand"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
)

// TypeKMeans is the type reference registered for KMeans.
const TypeKMeans = "cluster.KMeans"

func init() {
	gob.Register(&KMeans{})
	model.RegisterType(TypeKMeans, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultKMeansParams()
		if err := p.Decode("KMeans", &cfg); err != nil {
			return nil, err
		}
		return NewKMeans(cfg), nil
	})
}

// KMeansParams holds the hyperparameters of KMeans.
//
// algorithm accepts the scikit-learn names; every value runs Lloyd iterations.
type KMeansParams struct {
	NClusters   int     `mapstructure:"n_clusters" validate:"gte=1"`
	Init        string  `mapstructure:"init" validate:"oneof=k-means++ random"`
	NInit       int     `mapstructure:"n_init" validate:"gte=1"`
	MaxIter     int     `mapstructure:"max_iter" validate:"gte=1"`
	Tol         float64 `mapstructure:"tol" validate:"gte=0"`
	Algorithm   string  `mapstructure:"algorithm" validate:"oneof=lloyd elkan auto full"`
	CopyX       bool    `mapstructure:"copy_x"`
	RandomState int64   `mapstructure:"random_state"`
	Verbose     int     `mapstructure:"verbose"`
}

// DefaultKMeansParams returns scikit-learn's defaults with an explicit n_init.
func DefaultKMeansParams() KMeansParams {
	return KMeansParams{
		NClusters: 8,
		Init:      "k-means++",
		NInit:     10,
		MaxIter:   300,
		Tol:       1e-4,
		Algorithm: "lloyd",
		CopyX:     true,
	}
}

// KMeans partitions samples into n_clusters groups minimising the within-cluster
// sum of squares. n_init independent runs are made and the lowest inertia wins.
type KMeans struct {
	model.BaseEstimator

	Params KMeansParams

	ClusterCenters [][]float64
	LabelsFit      []int
	Inertia        float64
	NIter          int
}

// NewKMeans creates an unfitted KMeans.
func NewKMeans(params KMeansParams) *KMeans {
	return &KMeans{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (km *KMeans) GetParams() map[string]interface{} {
	return model.ParamsOf(km.Params)
}

// Labels returns the cluster index of every training sample.
func (km *KMeans) Labels() []int {
	return km.LabelsFit
}

type kmeansRun struct {
	centers [][]float64
	labels  []int
	inertia float64
	nIter   int
}

// Fit runs n_init Lloyd restarts and keeps the best one. y is ignored.
func (km *KMeans) Fit(X, _ mat.Matrix) error {
	rows, err := checkX("KMeans.Fit", X)
	if err != nil {
		return err
	}
	if len(rows) < km.Params.NClusters {
		return errors.NewValueError("KMeans.Fit",
			"n_samples should be >= n_clusters")
	}
	tol := scaledTol(rows, km.Params.Tol)

	rng := model.NewRand(km.Params.RandomState)
	seeds := make([]int64, km.Params.NInit)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	runs := make([]kmeansRun, km.Params.NInit)
	err = parallel.ForEach(len(runs), -1, func(r int) error {
		runs[r] = km.lloyd(rows, tol, rand.New(rand.NewSource(seeds[r])))
		return nil
	})
	if err != nil {
		return err
	}

	best := 0
	for r := range runs {
		if runs[r].inertia < runs[best].inertia {
			best = r
		}
	}
	if km.Params.Verbose > 0 {
		log.GetLoggerWithName("cluster").Info("k-means finished",
			log.ModelNameKey, "KMeans",
			log.OperationKey, log.OperationFit,
			log.IterationKey, runs[best].nIter,
			"inertia", runs[best].inertia,
		)
	}

	km.ClusterCenters = runs[best].centers
	km.LabelsFit = runs[best].labels
	km.Inertia = runs[best].inertia
	km.NIter = runs[best].nIter
	km.SetDimensions(len(rows[0]), len(rows))
	km.SetFitted()
	return nil
}

// lloyd runs one restart. Convergence is reached when labels stop changing
// or the total squared center shift falls to tol.
func (km *KMeans) lloyd(rows [][]float64, tol float64, rng *rand.Rand) kmeansRun {
	k := km.Params.NClusters
	var centers [][]float64
	if km.Params.Init == "random" {
		centers = make([][]float64, k)
		for c, idx := range rng.Perm(len(rows))[:k] {
			centers[c] = append([]float64(nil), rows[idx]...)
		}
	} else {
		centers = initPlusPlus(rows, k, rng)
	}

	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < km.Params.MaxIter {
		iter++
		changed := assign(rows, centers, labels)
		next := means(rows, labels, centers)
		var shift float64
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if !changed || shift <= tol {
			break
		}
	}
	assign(rows, centers, labels)

	var inertia float64
	for i, row := range rows {
		inertia += sqDist(row, centers[labels[i]])
	}
	return kmeansRun{centers: centers, labels: labels, inertia: inertia, nIter: iter}
}

// assign labels each row with its nearest center and reports whether any label changed.
func assign(rows, centers [][]float64, labels []int) bool {
	var changed atomic.Bool
	parallel.Parallelize(len(rows), -1, func(start, end int) {
		for i := start; i < end; i++ {
			if c := nearest(rows[i], centers); c != labels[i] {
				labels[i] = c
				changed.Store(true)
			}
		}
	})
	return changed.Load()
}

// means recomputes the centers. An empty cluster takes over the row farthest
// from its current center.
func means(rows [][]float64, labels []int, old [][]float64) [][]float64 {
	k, d := len(old), len(rows[0])
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, d)
	}
	counts := make([]int, k)
	for i, row := range rows {
		counts[labels[i]]++
		for j, v := range row {
			sums[labels[i]][j] += v
		}
	}
	for c := range sums {
		if counts[c] > 0 {
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			continue
		}
		far, farDist := 0, -1.0
		for i, row := range rows {
			if dd := sqDist(row, old[labels[i]]); dd > farDist {
				far, farDist = i, dd
			}
		}
		copy(sums[c], rows[far])
	}
	return sums
}

// initPlusPlus picks the first center uniformly and each following one with
// probability proportional to the squared distance to the nearest chosen center.
func initPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), rows[rng.Intn(len(rows))]...))

	closest := make([]float64, len(rows))
	for i, row := range rows {
		closest[i] = sqDist(row, centers[0])
	}
	for len(centers) < k {
		var total float64
		for _, d := range closest {
			total += d
		}
		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, d := range closest {
				if d == 0 {
					continue
				}
				pick = i
				if cum += d; cum > target {
					break
				}
			}
		} else {
			pick = rng.Intn(len(rows))
		}
		center := append([]float64(nil), rows[pick]...)
		centers = append(centers, center)
		for i, row := range rows {
			if d := sqDist(row, center); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centers
}

// Predict returns the index of the nearest center for every row.
func (km *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := km.RequireFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}
	if err := km.CheckFeatures("KMeans.Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = float64(nearest(row, km.ClusterCenters))
	}
	return model.ColumnVector(out), nil
}

// Transform returns the euclidean distance of every row to every center.
func (km *KMeans) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := km.RequireFitted("KMeans", "Transform"); err != nil {
		return nil, err
	}
	if err := km.CheckFeatures("KMeans.Transform", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewDense(len(rows), len(km.ClusterCenters), nil)
	for i, row := range rows {
		for c, center := range km.ClusterCenters {
			out.Set(i, c, math.Sqrt(sqDist(row, center)))
		}
	}
	return out, nil
}

// FitPredict fits on X and returns the training labels.
func (km *KMeans) FitPredict(X mat.Matrix) (mat.Matrix, error) {
	if err := km.Fit(X, nil); err != nil {
		return nil, err
	}
	return labelsColumn(km.LabelsFit), nil
}

// Score returns the negative inertia of X against the fitted centers.
func (km *KMeans) Score(X, _ mat.Matrix) (float64, error) {
	if err := km.RequireFitted("KMeans", "Score"); err != nil {
		return 0, err
	}
	if err := km.CheckFeatures("KMeans.Score", X); err != nil {
		return 0, err
	}
	var inertia float64
	for _, row := range model.Rows(X) {
		inertia += sqDist(row, km.ClusterCenters[nearest(row, km.ClusterCenters)])
	}
	return -inertia, nil
}

// scaledTol makes tol relative to the mean per-feature variance of the data.
func scaledTol(rows [][]float64, tol float64) float64 {
	if tol == 0 {
		return 0
	}
	d := len(rows[0])
	col := make([]float64, len(rows))
	var sum float64
	for j := 0; j < d; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return tol * sum / float64(d)
}

func nearest(row []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(row, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func labelsColumn(labels []int) *mat.Dense {
	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = float64(l)
	}
	return model.ColumnVector(out)
}

// checkX validates an unsupervised training matrix.
func checkX(op string, X mat.Matrix) ([][]float64, error) {
	if X == nil {
		return nil, errors.NewValueError(op, "X must not be nil")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "X must not be empty")
	}
	return model.Rows(X), nil
}
