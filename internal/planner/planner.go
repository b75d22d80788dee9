// Package planner builds the deterministic set of TestCases the
// Execution Engine will send for one endpoint (spec §4.3): a baseline
// request, one identifier-swap request per targetable parameter, and
// — when mutational fuzzing is enabled — a fixed payload set per
// targetable parameter. Grounded on the teacher's HypothesisGenerator
// orchestration shape (bounded, ordered emission; no open-ended fuzzing
// loop).
package planner

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/abendrothj/doppel/internal/model"
)

// Options configures how Plan fills in an endpoint's requests.
type Options struct {
	AttackerToken     string
	VictimID          string
	MutationalFuzzing bool
}

// mutationPayloads is the fixed, deterministic payload set from spec
// §4.3, emitted in this order for every targetable parameter.
var mutationPayloads = []struct {
	kind    model.MutationKind
	payload string
}{
	{model.MutationSQLiOr, "' OR 1=1--"},
	{model.MutationSQLiDrop, "\"; DROP TABLE"},
	{model.MutationXSS, "<script>alert(1)</script>"},
	{model.MutationBoundaryZero, "0"},
	{model.MutationBoundaryNeg, "-1"},
	{model.MutationBoundaryEmpty, ""},
	{model.MutationBoundaryNull, "null"},
	{model.MutationBoundaryHuge, "99999999999999999999"},
	{model.MutationBoundaryAdmin, "admin"},
}

// Plan builds every TestCase for one endpoint: the baseline first, then
// one Swap and (optionally) the mutation set per targetable parameter,
// in Endpoint.Parameters order.
func Plan(e *model.Endpoint, baseURL string, opts Options) []model.TestCase {
	var cases []model.TestCase
	index := 0

	baseline := buildCase(e, baseURL, opts, index, model.ClassBaseline, "", model.Parameter{}, baselineValue)
	cases = append(cases, baseline)
	index++

	if e.Method == model.MethodHead || e.Method == model.MethodOptions {
		return cases
	}

	for _, p := range e.TargetableParameters() {
		swap := buildSwapCase(e, baseURL, opts, index, p)
		cases = append(cases, swap)
		index++

		if !opts.MutationalFuzzing || swap.Skipped {
			continue
		}
		for _, m := range mutationPayloads {
			mc := buildCase(e, baseURL, opts, index, model.ClassMutation, m.kind, p, func(param model.Parameter) string { return m.payload })
			cases = append(cases, mc)
			index++
		}
		for _, mc := range adjacentIdentifierCases(e, baseURL, opts, &index, p) {
			cases = append(cases, mc)
		}
	}

	return cases
}

func buildSwapCase(e *model.Endpoint, baseURL string, opts Options, index int, p model.Parameter) model.TestCase {
	if p.Type == model.TypeInteger {
		if _, err := strconv.ParseInt(opts.VictimID, 10, 64); err != nil {
			return model.TestCase{
				Index:          index,
				EndpointID:     e.ID,
				Method:         e.Method,
				Classification: model.ClassSwap,
				Parameter:      p,
				InjectedValue:  opts.VictimID,
				Skipped:        true,
				SkippedReason:  "victim id is not a valid integer for an integer-typed parameter",
			}
		}
	}
	return buildCase(e, baseURL, opts, index, model.ClassSwap, "", p, func(param model.Parameter) string { return opts.VictimID })
}

// adjacentIdentifierCases emits the victim_id+1 / victim_id-1 mutations,
// which only make sense when the victim id is itself numeric.
func adjacentIdentifierCases(e *model.Endpoint, baseURL string, opts Options, index *int, p model.Parameter) []model.TestCase {
	n, err := strconv.ParseInt(opts.VictimID, 10, 64)
	if err != nil {
		return nil
	}
	var out []model.TestCase
	plus := buildCase(e, baseURL, opts, *index, model.ClassMutation, model.MutationAdjacentPlus, p, func(param model.Parameter) string { return strconv.FormatInt(n+1, 10) })
	out = append(out, plus)
	*index++
	minus := buildCase(e, baseURL, opts, *index, model.ClassMutation, model.MutationAdjacentMinus, p, func(param model.Parameter) string { return strconv.FormatInt(n-1, 10) })
	out = append(out, minus)
	*index++
	return out
}

// buildCase fills the endpoint's template URL and body with baseline
// values for every parameter except p (the parameter under test, whose
// value comes from valueFor). When p is the zero Parameter, every
// parameter uses its baseline value (the Baseline TestCase).
func buildCase(e *model.Endpoint, baseURL string, opts Options, index int, class model.Classification, kind model.MutationKind, p model.Parameter, valueFor func(model.Parameter) string) model.TestCase {
	url := e.TemplateURL
	headers := map[string]string{"Authorization": "Bearer " + opts.AttackerToken}
	body := append([]byte(nil), e.ExampleBody...)

	query := map[string]string{}
	for _, param := range e.Parameters {
		value := baselineValue(param)
		if p.Name != "" && p.Location == param.Location && p.Name == param.Name {
			value = valueFor(param)
		}
		switch param.Location {
		case model.LocationPath:
			url = substitutePlaceholder(url, param.Name, value)
		case model.LocationQuery:
			query[param.Name] = value
		case model.LocationHeader:
			headers[param.Name] = value
		case model.LocationBody:
			if body != nil {
				if updated, err := sjson.SetBytes(body, param.Name, value); err == nil {
					body = updated
				}
			}
		}
	}

	fullURL := baseURL + url
	if len(query) > 0 {
		fullURL += "?" + encodeQuery(query)
	}

	injectedValue := ""
	if p.Name != "" {
		injectedValue = valueFor(p)
	}

	return model.TestCase{
		Index:          index,
		EndpointID:     e.ID,
		URL:            fullURL,
		Method:         e.Method,
		Headers:        headers,
		Body:           body,
		Classification: class,
		MutationKind:   kind,
		Parameter:      p,
		InjectedValue:  injectedValue,
	}
}

// baselineValue picks a deterministic placeholder for a parameter that
// isn't under test: its declared example if present, else a
// type-appropriate default (spec §4.3: "1" for integers, "a" for
// strings).
func baselineValue(p model.Parameter) string {
	if p.Example != "" {
		return p.Example
	}
	switch p.Type {
	case model.TypeInteger, model.TypeNumber:
		return "1"
	case model.TypeBoolean:
		return "true"
	default:
		return "a"
	}
}

// substitutePlaceholder fills one named path placeholder, trying both
// supported forms — first "{name}" then ":name" — per spec §4.3.
func substitutePlaceholder(url, name, value string) string {
	url = strings.ReplaceAll(url, "{"+name+"}", value)
	url = strings.ReplaceAll(url, ":"+name, value)
	return url
}

func encodeQuery(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(query[k])
	}
	return b.String()
}
