package report

import (
	"encoding/json"
	"sort"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/risk"
)

// SARIFWriter renders Findings as a SARIF 2.1.0 log, so results load
// straight into GitHub code scanning and other SARIF consumers. Type
// shape grounded on govulncheck's internal/sarif package.
type SARIFWriter struct{}

func (SARIFWriter) Extension() string { return "sarif" }

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool         `json:"tool"`
	Results    []sarifResult     `json:"results"`
	Properties *sarifRunProperties `json:"properties,omitempty"`
}

// sarifRunProperties carries the resource-coverage appendix (spec
// SUPPLEMENTARY FEATURE #2) in SARIF's run-level properties bag, the
// mechanism the format reserves for tool-specific data that isn't a
// Result or Rule.
type sarifRunProperties struct {
	ResourceCoverage []sarifResourceCoverage `json:"resourceCoverage,omitempty"`
}

type sarifResourceCoverage struct {
	Resource string   `json:"resource"`
	Methods  []string `json:"methods"`
	FullCRUD bool     `json:"fullCrud"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string           `json:"id"`
	ShortDescription sarifDescription `json:"shortDescription"`
}

type sarifDescription struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifDescription `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

func (SARIFWriter) Write(findings []model.Finding, coverage []*risk.ResourceMapping) ([]byte, error) {
	rules := map[string]bool{}
	var ruleList []sarifRule
	var results []sarifResult

	for _, f := range findings {
		if f.Verdict != model.VerdictVulnerable {
			continue
		}
		ruleID := string(f.TestCase.MutationKind)
		if ruleID == "" {
			ruleID = "idor-identifier-swap"
		}
		if !rules[ruleID] {
			rules[ruleID] = true
			ruleList = append(ruleList, sarifRule{
				ID:               ruleID,
				ShortDescription: sarifDescription{Text: "Broken object level authorization (" + ruleID + ")"},
			})
		}
		results = append(results, sarifResult{
			RuleID:  ruleID,
			Level:   sarifLevel(f.Severity),
			Message: sarifDescription{Text: f.Reason + ": " + string(f.TestCase.Method) + " " + f.TestCase.URL},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.TestCase.URL},
				},
			}},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "doppel",
				InformationURI: "https://github.com/abendrothj/doppel",
				Rules:          ruleList,
			}},
			Results:    results,
			Properties: coverageProperties(coverage),
		}},
	}

	return json.MarshalIndent(log, "", "  ")
}

// coverageProperties turns the Risk Engine's CRUD resource map into
// the run's properties bag, sorted by resource for reproducible
// output across runs (ResourceMapper.Mappings() has no ordering
// guarantee of its own).
func coverageProperties(coverage []*risk.ResourceMapping) *sarifRunProperties {
	if len(coverage) == 0 {
		return nil
	}
	sorted := append([]*risk.ResourceMapping(nil), coverage...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourcePath < sorted[j].ResourcePath })

	entries := make([]sarifResourceCoverage, 0, len(sorted))
	for _, m := range sorted {
		var methods []string
		for _, method := range []model.Method{model.MethodGet, model.MethodPost, model.MethodPut, model.MethodPatch, model.MethodDelete} {
			if m.Methods[method] {
				methods = append(methods, string(method))
			}
		}
		entries = append(entries, sarifResourceCoverage{
			Resource: m.ResourcePath,
			Methods:  methods,
			FullCRUD: m.HasFullCRUD(),
		})
	}
	return &sarifRunProperties{ResourceCoverage: entries}
}

func sarifLevel(severity float64) string {
	switch {
	case severity >= 50:
		return "error"
	case severity > 0:
		return "warning"
	default:
		return "note"
	}
}
