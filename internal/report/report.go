// Package report renders a completed scan's Findings into the four
// output formats spec §6 names: CSV, Markdown, SARIF, and PDF. None of
// the 494 example files import a report-generation library for any of
// these, so every writer here is built directly on the standard
// library (see DESIGN.md).
package report

import (
	"fmt"
	"time"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/risk"
)

// Writer renders a set of Findings to a byte stream in one report
// format. coverage is the CRUD resource-coverage map the Risk Engine
// built while scoring every endpoint (supplementary feature); writers
// that have no appendix concept (CSV, PDF) simply ignore it.
type Writer interface {
	Write(findings []model.Finding, coverage []*risk.ResourceMapping) ([]byte, error)
	Extension() string
}

// Filename builds the "doppel_report_<UTC timestamp with
// milliseconds>.<ext>" name spec §6 requires, so repeated runs never
// collide and reports sort chronologically.
func Filename(w Writer, at time.Time) string {
	return fmt.Sprintf("doppel_report_%s.%s", at.UTC().Format("20060102T150405.000"), w.Extension())
}

// Selected returns the Writers enabled by the CLI's --csv-report/
// --markdown-report/--sarif-report/--pdf-report flags.
func Selected(csvOn, markdownOn, sarifOn, pdfOn bool) []Writer {
	var writers []Writer
	if csvOn {
		writers = append(writers, CSVWriter{})
	}
	if markdownOn {
		writers = append(writers, MarkdownWriter{})
	}
	if sarifOn {
		writers = append(writers, SARIFWriter{})
	}
	if pdfOn {
		writers = append(writers, PDFWriter{})
	}
	return writers
}
