package cluster

import (
	"encoding/gob"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
)

// TypeDBSCAN is the type reference registered for DBSCAN.
const TypeDBSCAN = "cluster.DBSCAN"

// Noise is the label given to samples that belong to no cluster.
const Noise = -1

func init() {
	gob.Register(&DBSCAN{})
	model.RegisterType(TypeDBSCAN, func(p model.Params) (model.Estimator, error) {
		cfg := DefaultDBSCANParams()
		if err := p.Decode("DBSCAN", &cfg); err != nil {
			return nil, err
		}
		return NewDBSCAN(cfg), nil
	})
}

// DBSCANParams holds the hyperparameters of DBSCAN. Neighbourhoods are always
// found by brute force; algorithm and leaf_size are accepted for compatibility.
type DBSCANParams struct {
	Eps        float64 `mapstructure:"eps" validate:"gt=0"`
	MinSamples int     `mapstructure:"min_samples" validate:"gte=1"`
	Metric     string  `mapstructure:"metric" validate:"oneof=euclidean manhattan chebyshev"`
	Algorithm  string  `mapstructure:"algorithm" validate:"oneof=auto ball_tree kd_tree brute"`
	LeafSize   int     `mapstructure:"leaf_size" validate:"gte=1"`
	NJobs      int     `mapstructure:"n_jobs"`
}

// DefaultDBSCANParams returns scikit-learn's defaults.
func DefaultDBSCANParams() DBSCANParams {
	return DBSCANParams{
		Eps:        0.5,
		MinSamples: 5,
		Metric:     "euclidean",
		Algorithm:  "auto",
		LeafSize:   30,
	}
}

// DBSCAN groups samples that are density-reachable from core samples. A core
// sample has at least min_samples neighbours (itself included) within eps.
type DBSCAN struct {
	model.BaseEstimator

	Params DBSCANParams

	LabelsFit         []int
	CoreSampleIndices []int
	Components        [][]float64
	// Rows seen by Fit, kept so Predict on the same matrix reproduces LabelsFit.
	FitRows [][]float64
}

// NewDBSCAN creates an unfitted DBSCAN.
func NewDBSCAN(params DBSCANParams) *DBSCAN {
	return &DBSCAN{Params: params}
}

// GetParams returns the hyperparameters keyed by their registry names.
func (db *DBSCAN) GetParams() map[string]interface{} {
	return model.ParamsOf(db.Params)
}

// Labels returns the cluster of every training sample, Noise for outliers.
func (db *DBSCAN) Labels() []int {
	return db.LabelsFit
}

func (db *DBSCAN) distance(a, b []float64) float64 {
	switch db.Params.Metric {
	case "manhattan":
		return floats.Distance(a, b, 1)
	case "chebyshev":
		return floats.Distance(a, b, math.Inf(1))
	default:
		return floats.Distance(a, b, 2)
	}
}

// Fit labels every sample. y is ignored.
func (db *DBSCAN) Fit(X, _ mat.Matrix) error {
	rows, err := checkX("DBSCAN.Fit", X)
	if err != nil {
		return err
	}
	n := len(rows)

	neighbors := make([][]int, n)
	parallel.Parallelize(n, db.Params.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				if db.distance(rows[i], rows[j]) <= db.Params.Eps {
					neighbors[i] = append(neighbors[i], j)
				}
			}
		}
	})
	core := make([]bool, n)
	for i, nb := range neighbors {
		core[i] = len(nb) >= db.Params.MinSamples
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core[i] {
			continue
		}
		labels[i] = cluster
		stack := []int{i}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !core[p] {
				continue
			}
			for _, q := range neighbors[p] {
				if labels[q] == Noise {
					labels[q] = cluster
					stack = append(stack, q)
				}
			}
		}
		cluster++
	}

	db.CoreSampleIndices = nil
	db.Components = nil
	for i := range rows {
		if core[i] {
			db.CoreSampleIndices = append(db.CoreSampleIndices, i)
			db.Components = append(db.Components, rows[i])
		}
	}
	db.LabelsFit = labels
	db.FitRows = rows
	db.SetDimensions(len(rows[0]), n)
	db.SetFitted()
	return nil
}

// Predict returns the fitted labels when X is the training matrix. Other rows
// join the cluster of their nearest core sample within eps, or become Noise.
func (db *DBSCAN) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := db.RequireFitted("DBSCAN", "Predict"); err != nil {
		return nil, err
	}
	if err := db.CheckFeatures("DBSCAN.Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	if db.sameAsFit(rows) {
		return labelsColumn(db.LabelsFit), nil
	}
	out := make([]int, len(rows))
	parallel.Parallelize(len(rows), db.Params.NJobs, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = Noise
			best := math.Inf(1)
			for c, idx := range db.CoreSampleIndices {
				if d := db.distance(rows[i], db.Components[c]); d <= db.Params.Eps && d < best {
					best = d
					out[i] = db.LabelsFit[idx]
				}
			}
		}
	})
	return labelsColumn(out), nil
}

// FitPredict fits on X and returns the training labels.
func (db *DBSCAN) FitPredict(X mat.Matrix) (mat.Matrix, error) {
	if err := db.Fit(X, nil); err != nil {
		return nil, err
	}
	return labelsColumn(db.LabelsFit), nil
}

// NClusters returns the number of clusters found, noise excluded.
func (db *DBSCAN) NClusters() int {
	n := 0
	for _, l := range db.LabelsFit {
		if l+1 > n {
			n = l + 1
		}
	}
	return n
}

func (db *DBSCAN) sameAsFit(rows [][]float64) bool {
	if len(rows) != len(db.FitRows) {
		return false
	}
	for i := range rows {
		if !floats.Equal(rows[i], db.FitRows[i]) {
			return false
		}
	}
	return true
}
