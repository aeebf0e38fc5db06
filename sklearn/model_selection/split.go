// Package model_selection provides data splitting, cross-validation and
// randomized hyperparameter search.
package model_selection

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Split holds the four matrices produced by TrainTestSplit and the row
// indices of the original data that went to each side.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense
	TrainIndex    []int
	TestIndex     []int
}

// Indices returns a copy of s holding only the row indices.
func (s *Split) Indices() *Split {
	return &Split{TrainIndex: s.TrainIndex, TestIndex: s.TestIndex}
}

// TrainTestSplit shuffles the rows with seed and holds out ceil(testSize*n)
// of them. With stratify the class proportions of y are preserved on both
// sides. y may be nil for unsupervised data, in which case stratify must be false.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64, stratify bool) (*Split, error) {
	if X == nil {
		return nil, errors.NewValueError("TrainTestSplit", "X must not be nil")
	}
	n, _ := X.Dims()
	if y != nil {
		if ny, _ := y.Dims(); ny != n {
			return nil, errors.NewDimensionError("TrainTestSplit", n, ny, 0)
		}
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain <= 0 || nTest <= 0 {
		return nil, errors.NewValueError("TrainTestSplit",
			"with n_samples and test_size the resulting train set would be empty")
	}

	rng := model.NewRand(seed)
	var train, test []int
	if stratify {
		if y == nil {
			return nil, errors.NewValueError("TrainTestSplit", "stratify requires y")
		}
		var err error
		train, test, err = stratifiedIndices(model.Column(y), nTest, rng)
		if err != nil {
			return nil, err
		}
	} else {
		perm := rng.Perm(n)
		test, train = perm[:nTest], perm[nTest:]
	}

	s := &Split{
		XTrain:     TakeRows(X, train),
		XTest:      TakeRows(X, test),
		TrainIndex: train,
		TestIndex:  test,
	}
	if y != nil {
		s.YTrain = TakeRows(y, train)
		s.YTest = TakeRows(y, test)
	}
	return s, nil
}

// stratifiedIndices allocates nTest rows across classes in proportion to
// their size, giving leftover rows to the classes with the largest remainders.
func stratifiedIndices(y []float64, nTest int, rng *rand.Rand) (train, test []int, err error) {
	classes, encoded := model.EncodeLabels(y)
	members := make([][]int, len(classes))
	for i, c := range encoded {
		members[c] = append(members[c], i)
	}
	for _, m := range members {
		if len(m) < 2 {
			return nil, nil, errors.NewValueError("TrainTestSplit",
				"the least populated class in y has only 1 member, which is too few; the minimum number of groups for any class cannot be less than 2")
		}
	}
	n := len(y)
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"the test and train sizes should be greater or equal to the number of classes")
	}

	alloc := make([]int, len(classes))
	type remainder struct {
		class int
		frac  float64
	}
	rest := make([]remainder, len(classes))
	assigned := 0
	for c, m := range members {
		exact := float64(nTest) * float64(len(m)) / float64(n)
		alloc[c] = int(math.Floor(exact))
		rest[c] = remainder{c, exact - float64(alloc[c])}
		assigned += alloc[c]
	}
	sort.SliceStable(rest, func(a, b int) bool { return rest[a].frac > rest[b].frac })
	for i := 0; assigned < nTest; i = (i + 1) % len(rest) {
		c := rest[i].class
		if alloc[c] < len(members[c])-1 {
			alloc[c]++
			assigned++
		}
	}

	for c, m := range members {
		rng.Shuffle(len(m), func(i, j int) { m[i], m[j] = m[j], m[i] })
		test = append(test, m[:alloc[c]]...)
		train = append(train, m[alloc[c]:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// TakeRows copies the given rows of m into a new matrix.
func TakeRows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}
