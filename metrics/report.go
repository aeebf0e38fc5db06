package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Metric names reported by the evaluation adapters.
const (
	NameAccuracy        = "Accuracy"
	NamePrecision       = "Precision"
	NameRecall          = "Recall"
	NameF1              = "F1-score"
	NameConfusionMatrix = "Confusion Matrix"
	NameROCAUC          = "ROC AUC"

	NameMAE  = "MAE"
	NameMSE  = "MSE"
	NameR2   = "R2"
	NameRMSE = "RMSE"
	NameMAPE = "MAPE"

	NameSilhouette    = "Silhouette Score"
	NameDaviesBouldin = "Davies-Bouldin Index"
)

// Metric is one named entry of a Report. Exactly one of Value and Matrix is meaningful.
type Metric struct {
	Name   string
	Value  float64
	Matrix [][]int
}

// IsMatrix reports whether the entry holds a matrix (confusion matrix).
func (m Metric) IsMatrix() bool {
	return m.Matrix != nil
}

func (m Metric) String() string {
	if m.IsMatrix() {
		rows := lo.Map(m.Matrix, func(row []int, _ int) string {
			return strings.Trim(fmt.Sprint(row), "[]")
		})
		return "[" + strings.Join(rows, "; ") + "]"
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// Report is an insertion-ordered set of metrics.
type Report struct {
	Entries []Metric
}

// Add appends a scalar metric.
func (r *Report) Add(name string, value float64) {
	r.Entries = append(r.Entries, Metric{Name: name, Value: value})
}

// AddMatrix appends a matrix-valued metric.
func (r *Report) AddMatrix(name string, m [][]int) {
	r.Entries = append(r.Entries, Metric{Name: name, Matrix: m})
}

// Get looks a metric up by name.
func (r *Report) Get(name string) (Metric, bool) {
	return lo.Find(r.Entries, func(m Metric) bool { return m.Name == name })
}

// Value returns the scalar value of a metric.
func (r *Report) Value(name string) (float64, bool) {
	m, ok := r.Get(name)
	if !ok || m.IsMatrix() {
		return 0, false
	}
	return m.Value, true
}

// Names lists metric names in insertion order.
func (r *Report) Names() []string {
	return lo.Map(r.Entries, func(m Metric, _ int) string { return m.Name })
}

// Render writes the report as a two-column table.
func (r *Report) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	for _, m := range r.Entries {
		if err := table.Append([]string{m.Name, m.String()}); err != nil {
			return err
		}
	}
	return table.Render()
}
