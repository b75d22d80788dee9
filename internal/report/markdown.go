package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/risk"
)

// MarkdownWriter renders Findings as a human-readable Markdown report,
// grouped by Verdict (VULNERABLE first) and sorted by descending
// Severity within each group.
type MarkdownWriter struct{}

func (MarkdownWriter) Extension() string { return "md" }

var verdictOrder = map[model.Verdict]int{
	model.VerdictVulnerable: 0,
	model.VerdictUncertain:  1,
	model.VerdictSecure:     2,
	model.VerdictError:      3,
}

func (MarkdownWriter) Write(findings []model.Finding, coverage []*risk.ResourceMapping) ([]byte, error) {
	sorted := append([]model.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if verdictOrder[sorted[i].Verdict] != verdictOrder[sorted[j].Verdict] {
			return verdictOrder[sorted[i].Verdict] < verdictOrder[sorted[j].Verdict]
		}
		return sorted[i].Severity > sorted[j].Severity
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# doppel scan report\n\n")

	counts := map[model.Verdict]int{}
	for _, f := range sorted {
		counts[f.Verdict]++
	}
	fmt.Fprintf(&buf, "%d vulnerable, %d uncertain, %d secure, %d error\n\n",
		counts[model.VerdictVulnerable], counts[model.VerdictUncertain],
		counts[model.VerdictSecure], counts[model.VerdictError])

	for _, f := range sorted {
		fmt.Fprintf(&buf, "## %s — %s %s\n\n", f.Verdict, f.TestCase.Method, f.TestCase.URL)
		fmt.Fprintf(&buf, "- endpoint: `%s`\n", f.EndpointID)
		fmt.Fprintf(&buf, "- classification: %s", f.TestCase.Classification)
		if f.TestCase.MutationKind != "" {
			fmt.Fprintf(&buf, " (%s)", f.TestCase.MutationKind)
		}
		buf.WriteString("\n")
		if f.TestCase.Parameter.Name != "" {
			fmt.Fprintf(&buf, "- parameter: `%s` = `%s`\n", f.TestCase.Parameter.Name, f.TestCase.InjectedValue)
		}
		fmt.Fprintf(&buf, "- reason: %s\n", f.Reason)
		fmt.Fprintf(&buf, "- severity: %.1f\n", f.Severity)
		if f.Attack != nil {
			fmt.Fprintf(&buf, "- status: %d\n", f.Attack.StatusCode)
		}
		for _, e := range f.Evidence {
			fmt.Fprintf(&buf, "  - evidence (%s): %s\n", e.Kind, e.Detail)
		}
		buf.WriteString("\n")
	}

	writeCoverageAppendix(&buf, coverage)

	return buf.Bytes(), nil
}

// coverageMethodOrder is the fixed column order the CRUD appendix
// checks each resource against, GET/POST/PUT/PATCH/DELETE (spec
// SUPPLEMENTARY FEATURE #2).
var coverageMethodOrder = []model.Method{
	model.MethodGet, model.MethodPost, model.MethodPut, model.MethodPatch, model.MethodDelete,
}

// writeCoverageAppendix renders the resource coverage appendix the
// Risk Engine's CRUD mapper (internal/risk/resource.go) feeds:
// sorted by ResourcePath, since ResourceMapper.Mappings() iterates a
// map and gives no ordering guarantee of its own.
func writeCoverageAppendix(buf *bytes.Buffer, coverage []*risk.ResourceMapping) {
	if len(coverage) == 0 {
		return
	}
	sorted := append([]*risk.ResourceMapping(nil), coverage...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourcePath < sorted[j].ResourcePath })

	buf.WriteString("## Resource coverage\n\n")
	buf.WriteString("| resource | GET | POST | PUT | PATCH | DELETE | full CRUD |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, m := range sorted {
		fmt.Fprintf(buf, "| `%s` ", m.ResourcePath)
		for _, method := range coverageMethodOrder {
			if m.Methods[method] {
				buf.WriteString("| x ")
			} else {
				buf.WriteString("|   ")
			}
		}
		if m.HasFullCRUD() {
			buf.WriteString("| yes |\n")
		} else {
			buf.WriteString("| no |\n")
		}
	}
	buf.WriteString("\n")
}
