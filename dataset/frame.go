// Package dataset holds named-column tabular data for the pipelines.
package dataset

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Frame is a dense numeric table with named columns.
//
// Columns that were read as text are stored as integer codes; Categories
// maps such a column name to its labels, where code i stands for label i.
type Frame struct {
	Columns    []string
	Data       *mat.Dense
	Categories map[string][]string
}

// NewFrame checks that columns are unique and match the width of data.
func NewFrame(columns []string, data *mat.Dense) (*Frame, error) {
	if data == nil || data.IsEmpty() {
		return nil, errors.NewValueError("NewFrame", "data must not be empty")
	}
	_, c := data.Dims()
	if len(columns) != c {
		return nil, errors.NewDimensionError("NewFrame", c, len(columns), 1)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if _, dup := seen[name]; dup {
			return nil, errors.NewValueError("NewFrame", fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = struct{}{}
	}
	return &Frame{Columns: slices.Clone(columns), Data: data}, nil
}

// Dims returns the number of rows and columns.
func (f *Frame) Dims() (rows, cols int) {
	return f.Data.Dims()
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	return slices.Index(f.Columns, name)
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, f.missing("Column", name)
	}
	return mat.Col(nil, j, f.Data), nil
}

// Separate splits the frame into the feature matrix (every column except
// target, in order) and the target column vector.
func (f *Frame) Separate(target string) (X, y *mat.Dense, features []string, err error) {
	j := f.ColumnIndex(target)
	if j < 0 {
		return nil, nil, nil, f.missing("Separate", target)
	}
	r, c := f.Dims()
	if c < 2 {
		return nil, nil, nil, errors.NewValueError("Separate", "frame has no feature columns besides the target")
	}
	X = mat.NewDense(r, c-1, nil)
	y = mat.NewDense(r, 1, mat.Col(nil, j, f.Data))
	for i := 0; i < r; i++ {
		k := 0
		for col := 0; col < c; col++ {
			if col == j {
				continue
			}
			X.Set(i, k, f.Data.At(i, col))
			k++
		}
	}
	features = slices.Delete(slices.Clone(f.Columns), j, j+1)
	return X, y, features, nil
}

func (f *Frame) missing(op, name string) error {
	return errors.NewValueError(op, fmt.Sprintf("column %q not found in dataset; available columns: %v", name, f.Columns))
}
