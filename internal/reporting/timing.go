package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ontobench/ontobench/internal/metrics"
	"github.com/ontobench/ontobench/internal/utils"
)

// Timings holds the per-method elapsed milliseconds of a timing file.
type Timings struct {
	Methods []string
	Runs    []int
	// Millis[m] holds the samples of Methods[m] in file order.
	Millis [][]float64
}

// LoadTimings reads a timing file; gzip input is accepted.
func LoadTimings(path string) (*Timings, error) {
	rc, err := utils.OpenInput(path)
	if err != nil {
		return nil, fmt.Errorf("timing: open %s: %w", path, err)
	}
	defer rc.Close() //nolint:errcheck

	t, err := ReadTimings(rc)
	if err != nil {
		return nil, fmt.Errorf("timing: %s: %w", path, err)
	}
	return t, nil
}

// ReadTimings parses the tab separated `run <method>...` format.
func ReadTimings(r io.Reader) (*Timings, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty (no header row)")
	}

	header := records[0]
	if len(header) == 0 || header[0] != "run" {
		return nil, fmt.Errorf("header must start with \"run\", got %q", strings.Join(header, "\t"))
	}

	t := &Timings{Methods: header[1:], Millis: make([][]float64, len(header)-1)}
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i+2, len(record), len(header))
		}
		run, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad run %q", i+2, record[0])
		}
		t.Runs = append(t.Runs, run)
		for m, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad time %q for %s", i+2, field, t.Methods[m])
			}
			t.Millis[m] = append(t.Millis[m], v)
		}
	}
	return t, nil
}

// MethodTiming is the timing summary of one method.
type MethodTiming struct {
	Method string
	metrics.Description
}

// Summarize describes every method's samples. seed makes the bootstrap
// intervals reproducible.
func (t *Timings) Summarize(seed uint64) ([]MethodTiming, error) {
	out := make([]MethodTiming, len(t.Methods))
	for m, name := range t.Methods {
		d, err := metrics.Describe(t.Millis[m], seed)
		if err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", name, err)
		}
		out[m] = MethodTiming{Method: name, Description: d}
	}
	return out, nil
}

// WriteTimingTable prints summaries as an aligned table, times in ms.
func WriteTimingTable(w io.Writer, summaries []MethodTiming) {
	rows := [][]string{{"method", "runs", "mean", "median", "p95", "95% CI"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Method,
			strconv.Itoa(s.N),
			fmt.Sprintf("%.1f", s.Mean),
			fmt.Sprintf("%.1f", s.Median),
			fmt.Sprintf("%.1f", s.P95),
			fmt.Sprintf("[%.1f, %.1f]", s.CI.Lower, s.CI.Upper),
		})
	}
	for _, line := range utils.Table(rows, 1, 2, 3, 4, 5) {
		fmt.Fprintln(w, line) //nolint:errcheck
	}
}
