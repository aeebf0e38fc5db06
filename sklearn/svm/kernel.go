// Package svm provides support vector classification.
package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Kernel names.
const (
	KernelLinear  = "linear"
	KernelPoly    = "poly"
	KernelRBF     = "rbf"
	KernelSigmoid = "sigmoid"
)

// Kernel evaluates k(a, b) for a fixed kernel type and coefficients.
type Kernel struct {
	Type   string
	Gamma  float64
	Coef0  float64
	Degree int
}

// Eval computes the kernel value of two rows.
func (k Kernel) Eval(a, b []float64) float64 {
	switch k.Type {
	case KernelLinear:
		return floats.Dot(a, b)
	case KernelPoly:
		return math.Pow(k.Gamma*floats.Dot(a, b)+k.Coef0, float64(k.Degree))
	case KernelSigmoid:
		return math.Tanh(k.Gamma*floats.Dot(a, b) + k.Coef0)
	default:
		d := floats.Distance(a, b, 2)
		return math.Exp(-k.Gamma * d * d)
	}
}

// ResolveGamma turns a gamma setting into a number for data X.
//
// "scale" uses 1 / (n_features * X.var()), "auto" uses 1 / n_features and
// any positive number is used as is.
func ResolveGamma(v interface{}, X [][]float64) (float64, error) {
	nFeatures := 0
	if len(X) > 0 {
		nFeatures = len(X[0])
	}
	switch g := v.(type) {
	case string:
		switch g {
		case "scale":
			all := make([]float64, 0, len(X)*nFeatures)
			for _, row := range X {
				all = append(all, row...)
			}
			_, variance := stat.PopMeanVariance(all, nil)
			if variance == 0 {
				return 1, nil
			}
			return 1 / (float64(nFeatures) * variance), nil
		case "auto":
			return 1 / float64(nFeatures), nil
		}
	case float64:
		if g > 0 {
			return g, nil
		}
	case float32:
		if g > 0 {
			return float64(g), nil
		}
	case int:
		if g > 0 {
			return float64(g), nil
		}
	case int64:
		if g > 0 {
			return float64(g), nil
		}
	}
	return 0, errors.NewValidationError("gamma", "must be \"scale\", \"auto\" or a positive number", v)
}

// CheckGamma validates a gamma setting without data.
func CheckGamma(v interface{}) error {
	_, err := ResolveGamma(v, [][]float64{{1}})
	return err
}

// kernelCache holds kernel rows up to a byte budget and evicts the oldest row.
type kernelCache struct {
	X       [][]float64
	kernel  Kernel
	rows    map[int][]float64
	order   []int
	maxRows int
}

func newKernelCache(X [][]float64, k Kernel, cacheMB float64) *kernelCache {
	rowBytes := 8 * len(X)
	maxRows := int(cacheMB * 1024 * 1024 / float64(rowBytes))
	if maxRows < 2 {
		maxRows = 2
	}
	return &kernelCache{X: X, kernel: k, rows: make(map[int][]float64), maxRows: maxRows}
}

// row returns k(X[i], X[j]) for all j.
func (c *kernelCache) row(i int) []float64 {
	if r, ok := c.rows[i]; ok {
		return r
	}
	r := make([]float64, len(c.X))
	for j := range c.X {
		r[j] = c.kernel.Eval(c.X[i], c.X[j])
	}
	if len(c.order) >= c.maxRows {
		delete(c.rows, c.order[0])
		c.order = c.order[1:]
	}
	c.rows[i] = r
	c.order = append(c.order, i)
	return r
}
