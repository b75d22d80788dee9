// Package model holds the data types shared by every stage of the
// scan pipeline: parser output, risk scores, test cases, responses,
// and findings.
package model

// Method is an HTTP method recognized by the parser layer.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// methodOrder fixes the enumeration order operations are emitted in
// for a single path, so OpenAPI parses are diffable across runs.
var methodOrder = []Method{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions,
}

// MethodOrder returns the fixed method enumeration order (spec §4.1).
func MethodOrder() []Method {
	out := make([]Method, len(methodOrder))
	copy(out, methodOrder)
	return out
}

// SourceFormat tags which parser produced an Endpoint.
type SourceFormat string

const (
	SourceOpenAPI SourceFormat = "openapi"
	SourcePostman SourceFormat = "postman"
	SourceBruno   SourceFormat = "bruno"
)

// Endpoint is one discovered request. It is built once by a parser and
// never mutated afterward (spec §3).
type Endpoint struct {
	ID          string
	Method      Method
	TemplateURL string
	Parameters  []Parameter
	Description string
	ExampleBody []byte
	Source      SourceFormat
}

// TargetableParameters returns the parameters whose risk score meets
// the targetable threshold (spec §4.2). RiskScore must already be
// populated on each parameter before calling this.
func (e *Endpoint) TargetableParameters() []Parameter {
	var out []Parameter
	for _, p := range e.Parameters {
		if p.Risk.Targetable() {
			out = append(out, p)
		}
	}
	return out
}

// MaxRisk returns the highest parameter risk score on the endpoint, or
// -1 if it has no parameters.
func (e *Endpoint) MaxRisk() int {
	max := -1
	for _, p := range e.Parameters {
		if p.Risk.Score > max {
			max = p.Risk.Score
		}
	}
	return max
}
