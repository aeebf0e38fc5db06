package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
)

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	frame, err := LoadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return frame, nil
}

// LoadCSV parses CSV with a header row. Columns whose cells all parse as
// floats are kept as numbers; any other column is label encoded in sorted
// order of its distinct values. Empty cells are an error.
func LoadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) < 2 {
		return nil, errors.NewValueError("LoadCSV", "csv needs a header and at least one row")
	}
	header, rows := records[0], records[1:]
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	data := mat.NewDense(len(rows), len(header), nil)
	categories := make(map[string][]string)
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				return nil, errors.NewValueError("LoadCSV", fmt.Sprintf("empty value in column %q at row %d", name, i+1))
			}
			cells[i] = cell
		}
		values, labels := parseColumn(cells)
		data.SetCol(j, values)
		if labels != nil {
			categories[name] = labels
		}
	}

	frame, err := NewFrame(header, data)
	if err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		frame.Categories = categories
	}
	log.GetLoggerWithName("dataset").Debug("csv loaded",
		log.SamplesKey, len(rows),
		log.FeaturesKey, len(header),
	)
	return frame, nil
}

func parseColumn(cells []string) ([]float64, []string) {
	values := make([]float64, len(cells))
	numeric := true
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = false
			break
		}
		values[i] = v
	}
	if numeric {
		return values, nil
	}

	labels := lo.Uniq(cells)
	sort.Strings(labels)
	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		codes[l] = i
	}
	for i, c := range cells {
		values[i] = float64(codes[c])
	}
	return values, labels
}
