// Package bruno parses Bruno .bru request files (spec §4.1) — a small
// line-oriented, block-delimited format ("meta {...}", "get {...}",
// "body:json {...}", etc). There is no single collection file: a
// directory of .bru files is walked in lexicographic order so parses
// stay deterministic across runs (spec §8).
package bruno

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/specerr"
)

var methodBlockRe = regexp.MustCompile(`^(get|post|put|patch|delete|head|options)$`)

// ParseDir walks every *.bru file directly under dir (lexicographic
// order) and returns the endpoints they declare.
func ParseDir(dir string) ([]model.Endpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &specerr.ParseError{File: dir, Reason: err.Error()}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bru") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var endpoints []model.Endpoint
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &specerr.ParseError{File: name, Reason: err.Error()}
		}
		ep, ok, err := ParseFile(name, data)
		if err != nil {
			return nil, err
		}
		if ok {
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

// blocks holds every top-level "name { ... }" block in a .bru file,
// keyed by block name, content unparsed.
type blocks map[string]string

// ParseFile parses a single .bru file's bytes into one Endpoint. ok is
// false when the file has no recognized HTTP method block (e.g. a
// folder.bru settings file).
func ParseFile(name string, data []byte) (model.Endpoint, bool, error) {
	bl := splitBlocks(string(data))

	var method model.Method
	var methodBlock string
	for key, content := range bl {
		if methodBlockRe.MatchString(key) {
			method = model.Method(strings.ToUpper(key))
			methodBlock = content
			break
		}
	}
	if method == "" {
		return model.Endpoint{}, false, nil
	}

	fields := splitFields(methodBlock)
	rawURL := fields["url"]
	templateURL := urlPath(rawURL)

	var params []model.Parameter
	if q, ok := bl["query"]; ok {
		for k, v := range splitFields(q) {
			params = append(params, model.Parameter{Name: k, Location: model.LocationQuery, Type: inferScalarType(v), Example: v})
		}
	}
	if h, ok := bl["headers"]; ok {
		for k, v := range splitFields(h) {
			params = append(params, model.Parameter{Name: k, Location: model.LocationHeader, Type: inferScalarType(v), Example: v})
		}
	}
	if p, ok := bl["params:path"]; ok {
		for k, v := range splitFields(p) {
			params = append(params, model.Parameter{Name: k, Location: model.LocationPath, Required: true, Type: inferScalarType(v), Example: v})
		}
	}

	var exampleBody []byte
	if jsonBody, ok := bl["body:json"]; ok {
		raw := strings.TrimSpace(jsonBody)
		exampleBody = []byte(raw)
		bodyParams := jsonLeafParams(exampleBody)
		params = append(params, bodyParams...)
	} else if formBody, ok := bl["body:form-urlencoded"]; ok {
		for k, v := range splitFields(formBody) {
			params = append(params, model.Parameter{Name: k, Location: model.LocationBody, Type: inferScalarType(v), Example: v})
		}
	}

	sortParamsStable(params)

	return model.Endpoint{
		ID:          model.EndpointID(method, templateURL, model.SourceBruno),
		Method:      method,
		TemplateURL: templateURL,
		Parameters:  params,
		Description: strings.TrimSuffix(name, ".bru"),
		ExampleBody: exampleBody,
		Source:      model.SourceBruno,
	}, true, nil
}

// splitBlocks finds every "name {\n...\n}" top-level block in a .bru
// file. Bruno blocks don't nest braces in practice (values are either
// scalar assignments or a literal JSON blob on one logical span), so a
// single-pass brace counter is enough.
func splitBlocks(src string) blocks {
	out := blocks{}
	lines := strings.Split(src, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" || !strings.HasSuffix(line, "{") {
			i++
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(line, "{"))
		var content []string
		depth := 1
		i++
		for i < len(lines) && depth > 0 {
			l := lines[i]
			trimmed := strings.TrimSpace(l)
			if trimmed == "}" {
				depth--
				i++
				continue
			}
			depth += strings.Count(l, "{") - strings.Count(l, "}")
			content = append(content, l)
			i++
		}
		out[name] = strings.Join(content, "\n")
	}
	return out
}

// splitFields parses "key: value" lines inside a block — the form most
// Bruno blocks (query, headers, params:path, meta) use.
func splitFields(content string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "~") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		out[key] = value
	}
	return out
}

func urlPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "://"); idx >= 0 {
		raw = raw[idx+3:]
	}
	if idx := strings.Index(raw, "/"); idx >= 0 {
		path := raw[idx:]
		if q := strings.Index(path, "?"); q >= 0 {
			path = path[:q]
		}
		return path
	}
	return "/"
}

func inferScalarType(v string) model.ParamType {
	if v == "" {
		return model.TypeUnknown
	}
	if v == "true" || v == "false" {
		return model.TypeBoolean
	}
	isNumeric := true
	for _, r := range v {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			isNumeric = false
			break
		}
	}
	if isNumeric {
		return model.TypeInteger
	}
	return model.TypeString
}

// jsonLeafParams extracts body leaf Parameters out of the JSON blob in a
// "body:json" block using buger/jsonparser's zero-allocation token
// walk — grounded on the teacher's jsonparser-based response scanning in
// internal/driven/analyzer.go.
func jsonLeafParams(data []byte) []model.Parameter {
	var params []model.Parameter
	_ = jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		walkJSONLeaf(string(key), value, dataType, &params)
		return nil
	})
	return params
}

func walkJSONLeaf(prefix string, value []byte, dataType jsonparser.ValueType, out *[]model.Parameter) {
	switch dataType {
	case jsonparser.Object:
		_ = jsonparser.ObjectEach(value, func(key []byte, v []byte, dt jsonparser.ValueType, offset int) error {
			walkJSONLeaf(prefix+"."+string(key), v, dt, out)
			return nil
		})
	case jsonparser.Array:
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, offset int, err error) {
			walkJSONLeaf(prefix+"[0]", v, dt, out)
		})
	case jsonparser.String:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeString, Example: string(value)})
	case jsonparser.Number:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeNumber, Example: string(value)})
	case jsonparser.Boolean:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeBoolean, Example: string(value)})
	case jsonparser.Null:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeUnknown})
	}
}

func sortParamsStable(params []model.Parameter) {
	sort.SliceStable(params, func(i, j int) bool {
		if params[i].Location != params[j].Location {
			return params[i].Location < params[j].Location
		}
		return params[i].Name < params[j].Name
	})
}
