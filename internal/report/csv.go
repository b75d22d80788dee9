package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/risk"
)

// CSVWriter renders Findings as CSV. Per spec §6, any field that would
// be interpreted as a formula by a spreadsheet application (starting
// with =, +, -, @, or a tab) is neutralized by prefixing it with a
// single quote before the encoding/csv package quotes/escapes it
// normally.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

var csvHeader = []string{
	"endpoint_id", "method", "url", "classification", "mutation_kind",
	"parameter", "injected_value", "verdict", "reason", "severity",
	"status_code", "evidence",
}

// Write ignores coverage: CSV has no appendix concept, one row per
// Finding only.
func (CSVWriter) Write(findings []model.Finding, coverage []*risk.ResourceMapping) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, f := range findings {
		status := ""
		if f.Attack != nil {
			status = strconv.Itoa(f.Attack.StatusCode)
		}
		evidence := make([]string, 0, len(f.Evidence))
		for _, e := range f.Evidence {
			evidence = append(evidence, e.Kind+": "+e.Detail)
		}

		row := []string{
			f.EndpointID,
			string(f.TestCase.Method),
			f.TestCase.URL,
			string(f.TestCase.Classification),
			string(f.TestCase.MutationKind),
			f.TestCase.Parameter.Name,
			f.TestCase.InjectedValue,
			string(f.Verdict),
			f.Reason,
			strconv.FormatFloat(f.Severity, 'f', 1, 64),
			status,
			strings.Join(evidence, "; "),
		}
		for i, cell := range row {
			row[i] = sanitizeCSVCell(cell)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sanitizeCSVCell prefixes a leading formula-trigger character with a
// single quote, per spec §6's CSV-injection-safety rule.
func sanitizeCSVCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t':
		return "'" + s
	default:
		return s
	}
}
