package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/risk"
)

// PDFWriter renders Findings as a minimal single-column PDF report.
// No PDF library appears anywhere in the example pack (see DESIGN.md),
// so this writes the PDF object graph by hand: a Catalog, a Pages tree,
// one Helvetica font object shared by every page, and one content
// stream per page of wrapped text lines.
type PDFWriter struct{}

func (PDFWriter) Extension() string { return "pdf" }

const (
	pdfLinesPerPage = 50
	pdfFontSize     = 10
	pdfLineHeight   = 14
	pdfTopMargin    = 760
	pdfLeftMargin   = 50
)

// Write ignores coverage: the hand-rolled PDF object graph below stays
// a findings-only report, same as CSV.
func (PDFWriter) Write(findings []model.Finding, coverage []*risk.ResourceMapping) ([]byte, error) {
	lines := pdfLines(findings)
	pages := chunkLines(lines, pdfLinesPerPage)
	if len(pages) == 0 {
		pages = [][]string{{"doppel scan report: no findings"}}
	}
	return renderPDF(pages), nil
}

func pdfLines(findings []model.Finding) []string {
	sorted := append([]model.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if verdictOrder[sorted[i].Verdict] != verdictOrder[sorted[j].Verdict] {
			return verdictOrder[sorted[i].Verdict] < verdictOrder[sorted[j].Verdict]
		}
		return sorted[i].Severity > sorted[j].Severity
	})

	lines := []string{"doppel scan report", ""}
	for _, f := range sorted {
		lines = append(lines, fmt.Sprintf("%s  %s %s", f.Verdict, f.TestCase.Method, f.TestCase.URL))
		lines = append(lines, fmt.Sprintf("  endpoint=%s reason=%s severity=%.1f", f.EndpointID, f.Reason, f.Severity))
		if f.TestCase.Parameter.Name != "" {
			lines = append(lines, fmt.Sprintf("  parameter=%s injected=%s", f.TestCase.Parameter.Name, f.TestCase.InjectedValue))
		}
		for _, e := range f.Evidence {
			lines = append(lines, fmt.Sprintf("  evidence[%s]=%s", e.Kind, e.Detail))
		}
		lines = append(lines, "")
	}
	return lines
}

func chunkLines(lines []string, size int) [][]string {
	var pages [][]string
	for size > 0 && len(lines) > 0 {
		if len(lines) <= size {
			pages = append(pages, lines)
			break
		}
		pages = append(pages, lines[:size])
		lines = lines[size:]
	}
	return pages
}

// renderPDF assembles a valid PDF byte stream from pre-wrapped text
// pages, tracking each object's byte offset for the xref table.
func renderPDF(pages [][]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := map[int]int{}
	writeObj := func(n int, body string) {
		offsets[n] = buf.Len()
		buf.WriteString(fmt.Sprintf("%d 0 obj\n%s\nendobj\n", n, body))
	}

	const catalogID, pagesID, fontID = 1, 2, 3
	firstPageObj := 4

	pageIDs := make([]int, len(pages))
	contentIDs := make([]int, len(pages))
	next := firstPageObj
	for i := range pages {
		pageIDs[i] = next
		next++
		contentIDs[i] = next
		next++
	}

	writeObj(catalogID, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))

	kids := make([]string, len(pageIDs))
	for i, id := range pageIDs {
		kids[i] = fmt.Sprintf("%d 0 R", id)
	}
	writeObj(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageIDs)))

	writeObj(fontID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, page := range pages {
		content := pageContentStream(page)
		writeObj(pageIDs[i], fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, fontID, contentIDs[i],
		))
		writeObj(contentIDs[i], fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	lastObj := next - 1
	xrefStart := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", lastObj+1))
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= lastObj; i++ {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root %d 0 R >>\n", lastObj+1, catalogID))
	buf.WriteString(fmt.Sprintf("startxref\n%d\n%%%%EOF", xrefStart))

	return buf.Bytes()
}

func pageContentStream(lines []string) string {
	var b strings.Builder
	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 %d Tf\n", pdfFontSize)
	fmt.Fprintf(&b, "%d %d Td\n", pdfLeftMargin, pdfTopMargin)
	for i, line := range lines {
		if i > 0 {
			fmt.Fprintf(&b, "0 -%d Td\n", pdfLineHeight)
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escapePDFString(line))
	}
	b.WriteString("ET")
	return b.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
