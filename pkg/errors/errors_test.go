package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "mlkit: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "mlkit: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 3, 1)

	want := "mlkit: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("KMeans", "Predict")

	want := "mlkit: KMeans: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("Separate", "target column 'label' not found")
	if err.Error() != "mlkit: Separate: target column 'label' not found" {
		t.Errorf("Error() = %v", err.Error())
	}
	var valErr *ValueError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValueError")
	}
}

func TestUnknownModelError(t *testing.T) {
	err := NewUnknownModelError("classification", "not_a_model",
		[]string{"catboost", "lightgbm", "random_forest"})

	want := "mlkit: unknown classification model 'not_a_model'. Available: [catboost, lightgbm, random_forest]"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var unknown *UnknownModelError
	if !As(err, &unknown) {
		t.Fatal("Error should be castable to *UnknownModelError")
	}
	if len(unknown.Available) != 3 {
		t.Errorf("Available = %v", unknown.Available)
	}
}

func TestTypeResolutionError(t *testing.T) {
	err := NewTypeResolutionError("ensemble.Missing", []string{"a", "b"})
	if !strings.Contains(err.Error(), `"ensemble.Missing"`) {
		t.Errorf("Error() should name the reference: %v", err)
	}
	var terr *TypeResolutionError
	if !As(err, &terr) {
		t.Error("Error should be castable to *TypeResolutionError")
	}
}

func TestModelConstructionErrorUnwrap(t *testing.T) {
	cause := NewValidationError("n_estimators", "must be positive", -1)
	err := NewModelConstructionError("classification", "random_forest", cause)

	if !strings.Contains(err.Error(), "random_forest") || !strings.Contains(err.Error(), "must be positive") {
		t.Errorf("Error() = %v", err)
	}

	var construction *ModelConstructionError
	if !As(err, &construction) {
		t.Fatal("Error should be castable to *ModelConstructionError")
	}
	var validation *ValidationError
	if !As(err, &validation) {
		t.Error("cause should be reachable through Unwrap")
	}
	if validation.ParamName != "n_estimators" {
		t.Errorf("ParamName = %s", validation.ParamName)
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("KMeans", 300, "centers still moving")

	want := "KMeans failed to converge after 300 iterations: centers still moving"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))
	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if !strings.Contains(got[0].Error(), "'precision' is ill-defined") {
		t.Errorf("warning = %v", got[0])
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in pipeline load")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in pipeline load") {
		t.Error("Expected wrapped error to contain wrapping message")
	}

	wrappedf := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)
	if !Is(wrappedf, ErrEmptyData) {
		t.Error("Expected Is(wrappedf, ErrEmptyData) to be true")
	}
}

func TestNumericalHelpers(t *testing.T) {
	if err := CheckNumericalStability("loglik", []float64{1.5, -2}, 0); err != nil {
		t.Errorf("finite values flagged: %v", err)
	}
	if err := CheckNumericalStability("loglik", []float64{1, nan()}, 3); err == nil {
		t.Error("NaN should be flagged")
	}
	if SafeDivide(1, 0) != 0 {
		t.Error("SafeDivide by zero should return 0")
	}
	if s := Sigmoid(0); s != 0.5 {
		t.Errorf("Sigmoid(0) = %v", s)
	}
	p := Softmax([]float64{1, 1})
	if p[0] != 0.5 || p[1] != 0.5 {
		t.Errorf("Softmax = %v", p)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
