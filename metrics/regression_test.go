package metrics

import (
	"math"
	"testing"
)

func TestRegressionMetrics(t *testing.T) {
	yTrue := vec(3, -0.5, 2, 7)
	yPred := vec(2.5, 0.0, 2, 8)

	tests := []struct {
		name string
		fn   func() (float64, error)
		want float64
	}{
		{name: "MSE", fn: func() (float64, error) { return MSE(yTrue, yPred) }, want: 0.375},
		{name: "RMSE", fn: func() (float64, error) { return RMSE(yTrue, yPred) }, want: math.Sqrt(0.375)},
		{name: "MAE", fn: func() (float64, error) { return MAE(yTrue, yPred) }, want: 0.5},
		{name: "R2", fn: func() (float64, error) { return R2Score(yTrue, yPred) }, want: 0.9486081370449679},
		{name: "ExplainedVariance", fn: func() (float64, error) { return ExplainedVarianceScore(yTrue, yPred) }, want: 0.9571734475374732},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMAPE(t *testing.T) {
	got, err := MAPE(vec(100, 200, 0), vec(110, 180, 5))
	if err != nil {
		t.Fatal(err)
	}
	// ゼロの正解値は除外される: (10% + 10%) / 2
	if math.Abs(got-10) > 1e-9 {
		t.Errorf("MAPE = %v, want 10", got)
	}
	if _, err := MAPE(vec(0, 0), vec(1, 1)); err == nil {
		t.Error("MAPE with all-zero yTrue should fail")
	}
}

func TestRegressionMetricErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (float64, error)
	}{
		{name: "MSE nil", fn: func() (float64, error) { return MSE(nil, vec(1)) }},
		{name: "MAE mismatch", fn: func() (float64, error) { return MAE(vec(1, 2), vec(1)) }},
		{name: "R2 constant target", fn: func() (float64, error) { return R2Score(vec(2, 2, 2), vec(1, 2, 3)) }},
		{name: "RMSE empty", fn: func() (float64, error) { return RMSE(vec(), vec()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
		})
	}
}

func BenchmarkMSE(b *testing.B) {
	data := make([]float64, 10000)
	pred := make([]float64, 10000)
	for i := range data {
		data[i] = float64(i)
		pred[i] = float64(i) + 0.5
	}
	yTrue, yPred := vec(data...), vec(pred...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
