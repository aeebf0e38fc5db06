package svm

import (
	"math"
)

const tau = 1e-12

// BinarySVM is one fitted two-class machine. The decision value of x is
// sum_i Coef[i] * k(Vectors[i], x) - Rho, positive for the +1 class.
type BinarySVM struct {
	Vectors [][]float64
	Coef    []float64
	Rho     float64
	NIter   int
}

// Decision evaluates the decision function for one row.
func (m *BinarySVM) Decision(k Kernel, x []float64) float64 {
	var s float64
	for i, v := range m.Vectors {
		s += m.Coef[i] * k.Eval(v, x)
	}
	return s - m.Rho
}

// smoProblem is the C-SVC dual: min 1/2 a'Qa - e'a, 0 <= a_i <= C_i, y'a = 0,
// solved with the second-order working set selection of Fan, Chen and Lin (2005).
type smoProblem struct {
	y     []float64
	c     []float64
	cache *kernelCache
	diag  []float64
	tol   float64
	// maxIter <= 0 means max(10^7, 100n)
	maxIter int
}

func (p *smoProblem) upper(alpha []float64, t int) bool { return alpha[t] >= p.c[t] }
func (p *smoProblem) lower(alpha []float64, t int) bool { return alpha[t] <= 0 }

// solve returns the fitted machine and whether it converged.
func (p *smoProblem) solve(X [][]float64) (*BinarySVM, bool) {
	n := len(p.y)
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}

	limit := p.maxIter
	if limit <= 0 {
		limit = 10000000
		if 100*n > limit {
			limit = 100 * n
		}
	}

	converged := false
	iter := 0
	for ; iter < limit; iter++ {
		i, j, ok := p.selectWorkingSet(alpha, grad)
		if !ok {
			converged = true
			break
		}
		ki, kj := p.cache.row(i), p.cache.row(j)
		yi, yj := p.y[i], p.y[j]
		qij := yi * yj * ki[j]
		oldI, oldJ := alpha[i], alpha[j]
		ci, cj := p.c[i], p.c[j]

		if yi != yj {
			quad := p.diag[i] + p.diag[j] + 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > ci-cj {
				if alpha[i] > ci {
					alpha[i] = ci
					alpha[j] = ci - diff
				}
			} else if alpha[j] > cj {
				alpha[j] = cj
				alpha[i] = cj + diff
			}
		} else {
			quad := p.diag[i] + p.diag[j] - 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > ci {
				if alpha[i] > ci {
					alpha[i] = ci
					alpha[j] = sum - ci
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > cj {
				if alpha[j] > cj {
					alpha[j] = cj
					alpha[i] = sum - cj
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += p.y[t]*yi*ki[t]*dI + p.y[t]*yj*kj[t]*dJ
		}
	}

	m := &BinarySVM{Rho: p.rho(alpha, grad), NIter: iter}
	for t := 0; t < n; t++ {
		if alpha[t] > 0 {
			m.Vectors = append(m.Vectors, X[t])
			m.Coef = append(m.Coef, alpha[t]*p.y[t])
		}
	}
	return m, converged
}

func (p *smoProblem) selectWorkingSet(alpha, grad []float64) (int, int, bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := range p.y {
		if p.y[t] > 0 {
			if !p.upper(alpha, t) && -grad[t] >= gmax {
				gmax, i = -grad[t], t
			}
		} else if !p.lower(alpha, t) && grad[t] >= gmax {
			gmax, i = grad[t], t
		}
	}
	if i < 0 {
		return 0, 0, false
	}

	ki := p.cache.row(i)
	j := -1
	objMin := math.Inf(1)
	for t := range p.y {
		var gradDiff, quad float64
		if p.y[t] > 0 {
			if p.lower(alpha, t) {
				continue
			}
			if grad[t] >= gmax2 {
				gmax2 = grad[t]
			}
			gradDiff = gmax + grad[t]
			quad = p.diag[i] + p.diag[t] - 2*ki[t]
		} else {
			if p.upper(alpha, t) {
				continue
			}
			if -grad[t] >= gmax2 {
				gmax2 = -grad[t]
			}
			gradDiff = gmax - grad[t]
			quad = p.diag[i] + p.diag[t] - 2*ki[t]
		}
		if gradDiff <= 0 {
			continue
		}
		if quad <= 0 {
			quad = tau
		}
		if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
			objMin, j = obj, t
		}
	}
	if gmax+gmax2 < p.tol || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}

// rho averages y_i*G_i over free variables, or takes the midpoint of the
// feasible interval when every variable is at a bound.
func (p *smoProblem) rho(alpha, grad []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0
	for t := range p.y {
		yg := p.y[t] * grad[t]
		switch {
		case p.upper(alpha, t):
			if p.y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case p.lower(alpha, t):
			if p.y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}
