package model_selection

import (
	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter produces cross-validation folds for n rows with targets y.
type Splitter interface {
	Split(n int, y []float64) ([]Fold, error)
}

// KFold splits rows into NSplits consecutive folds. The first n%NSplits
// folds hold one extra row.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// Split implements Splitter.
func (k KFold) Split(n int, _ []float64) ([]Fold, error) {
	if err := checkSplits("KFold", k.NSplits, n); err != nil {
		return nil, err
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k.Shuffle {
		rng := model.NewRand(k.Seed)
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	assign := make([]int, n)
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}
		for _, i := range idx[start : start+size] {
			assign[i] = f
		}
		start += size
	}
	return foldsFromAssignment(assign, k.NSplits), nil
}

// StratifiedKFold deals the rows of every class round-robin over the folds so
// each fold keeps the class proportions of y.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// Split implements Splitter.
func (k StratifiedKFold) Split(n int, y []float64) ([]Fold, error) {
	if err := checkSplits("StratifiedKFold", k.NSplits, n); err != nil {
		return nil, err
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("StratifiedKFold", n, len(y), 0)
	}
	classes, encoded := model.EncodeLabels(y)
	members := make([][]int, len(classes))
	for i, c := range encoded {
		members[c] = append(members[c], i)
	}
	largest := 0
	for _, m := range members {
		largest = max(largest, len(m))
	}
	if largest < k.NSplits {
		return nil, errors.NewValueError("StratifiedKFold",
			"n_splits cannot be greater than the number of members in each class")
	}

	var rng interface{ Shuffle(int, func(int, int)) }
	if k.Shuffle {
		rng = model.NewRand(k.Seed)
	}
	assign := make([]int, n)
	next := 0
	for _, m := range members {
		if rng != nil {
			rng.Shuffle(len(m), func(i, j int) { m[i], m[j] = m[j], m[i] })
		}
		for _, i := range m {
			assign[i] = next
			next = (next + 1) % k.NSplits
		}
	}
	return foldsFromAssignment(assign, k.NSplits), nil
}

func checkSplits(op string, nSplits, n int) error {
	if nSplits < 2 {
		return errors.NewValidationError("n_splits", "must be at least 2", nSplits)
	}
	if nSplits > n {
		return errors.NewValueError(op, "cannot have number of splits greater than the number of samples")
	}
	return nil
}

func foldsFromAssignment(assign []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for i, f := range assign {
		for g := range folds {
			if g == f {
				folds[g].Test = append(folds[g].Test, i)
			} else {
				folds[g].Train = append(folds[g].Train, i)
			}
		}
	}
	return folds
}
