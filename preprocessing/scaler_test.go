package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

func matrixClose(t *testing.T, got, want mat.Matrix) {
	t.Helper()
	if !mat.EqualApprox(got, want, 1e-10) {
		t.Errorf("got\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()
	got, err := s.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}

	sd := math.Sqrt(1.25)
	want := mat.NewDense(4, 2, []float64{
		-1.5 / sd, 0,
		-0.5 / sd, 0,
		0.5 / sd, 0,
		1.5 / sd, 0,
	})
	matrixClose(t, got, want)

	if s.Scale[1] != 1 {
		t.Errorf("constant feature scale = %v, want 1", s.Scale[1])
	}

	back, err := s.InverseTransform(got)
	if err != nil {
		t.Fatal(err)
	}
	matrixClose(t, back, X)
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, -1,
		5, 0,
		10, 1,
	})
	m := NewMinMaxScaler([2]float64{-1, 1})
	got, err := m.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(3, 2, []float64{
		-1, -1,
		0, 0,
		1, 1,
	})
	matrixClose(t, got, want)

	back, err := m.InverseTransform(got)
	if err != nil {
		t.Fatal(err)
	}
	matrixClose(t, back, X)

	if err := NewMinMaxScaler([2]float64{1, 0}).Fit(X); err == nil {
		t.Error("expected error for inverted feature range")
	}
}

func TestScalerErrors(t *testing.T) {
	tests := []struct {
		name   string
		scaler interface {
			Fit(mat.Matrix) error
			Transform(mat.Matrix) (mat.Matrix, error)
		}
	}{
		{"standard", NewStandardScalerDefault()},
		{"minmax", NewMinMaxScalerDefault()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.scaler.Transform(mat.NewDense(1, 2, nil))
			var nf *errors.NotFittedError
			if !errors.As(err, &nf) {
				t.Fatalf("Transform before Fit: got %v, want NotFittedError", err)
			}

			if err := tt.scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
				t.Fatal(err)
			}
			_, err = tt.scaler.Transform(mat.NewDense(1, 3, nil))
			var de *errors.DimensionError
			if !errors.As(err, &de) {
				t.Errorf("Transform with wrong width: got %v, want DimensionError", err)
			}
		})
	}
}

func TestParseScaleMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ScaleMode
		wantErr bool
	}{
		{in: "", want: ScaleNone},
		{in: "none", want: ScaleNone},
		{in: "Standard", want: ScaleStandard},
		{in: "minmax", want: ScaleMinMax},
		{in: "robust", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseScaleMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScaleMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScaleMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	s, err := NewScaler(ScaleNone)
	if err != nil || s != nil {
		t.Errorf("NewScaler(none) = %v, %v", s, err)
	}
	s, err = NewScaler(ScaleMinMax)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MinMaxScaler); !ok {
		t.Errorf("NewScaler(minmax) = %T", s)
	}
}
