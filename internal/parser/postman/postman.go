// Package postman parses Postman v2.1 collections into model.Endpoints
// (spec §4.1). Collections are plain JSON trees with no ordering
// contract to preserve beyond array order, which encoding/json already
// gives us — unlike the OpenAPI parser, there's no need for an
// order-preserving map type here.
package postman

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/specerr"
)

type collection struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Item     []item     `json:"item"`
	Variable []variable `json:"variable"`
}

type variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type item struct {
	Name    string    `json:"name"`
	Item    []item    `json:"item"`
	Request *request  `json:"request"`
}

type request struct {
	Method string      `json:"method"`
	Header []header    `json:"header"`
	URL    interface{} `json:"url"`
	Body   *body       `json:"body"`
}

type header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type body struct {
	Mode       string         `json:"mode"`
	Raw        string         `json:"raw"`
	URLEncoded []kv           `json:"urlencoded"`
	FormData   []kv           `json:"formdata"`
	Options    map[string]any `json:"options"`
}

type kv struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type urlObject struct {
	Raw      string     `json:"raw"`
	Host     []string   `json:"host"`
	Path     []string   `json:"path"`
	Query    []kv       `json:"query"`
	Variable []variable `json:"variable"`
}

// Detect reports whether the file at path looks like a Postman v2.1
// collection (a top-level "info.schema" pointing at the v2.1 schema).
func Detect(path string, data []byte) bool {
	var probe struct {
		Info struct {
			Schema string `json:"schema"`
		} `json:"info"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return strings.Contains(probe.Info.Schema, "collection/v2.1")
}

// Parse reads a Postman v2.1 collection from path and returns every
// request it contains, walked depth-first through nested folders in
// file order.
func Parse(path string, data []byte) ([]model.Endpoint, error) {
	var col collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, &specerr.ParseError{File: path, Reason: err.Error()}
	}

	vars := map[string]string{}
	for _, v := range col.Variable {
		vars[v.Key] = v.Value
	}

	var endpoints []model.Endpoint
	var walk func(items []item)
	walk = func(items []item) {
		for _, it := range items {
			if it.Request != nil {
				endpoints = append(endpoints, buildEndpoint(it, vars))
				continue
			}
			if len(it.Item) > 0 {
				walk(it.Item)
			}
		}
	}
	walk(col.Item)

	return endpoints, nil
}

func buildEndpoint(it item, vars map[string]string) model.Endpoint {
	req := it.Request
	method := model.Method(strings.ToUpper(req.Method))

	u := parseURL(req.URL)
	templateURL := substituteVars(urlPath(u), vars)

	var params []model.Parameter
	for _, v := range u.Variable {
		params = append(params, model.Parameter{
			Name:     v.Key,
			Location: model.LocationPath,
			Required: true,
			Type:     model.TypeUnknown,
			Example:  v.Value,
		})
	}
	for _, q := range u.Query {
		params = append(params, model.Parameter{
			Name:     q.Key,
			Location: model.LocationQuery,
			Type:     inferScalarType(q.Value),
			Example:  q.Value,
		})
	}
	for _, h := range req.Header {
		params = append(params, model.Parameter{
			Name:     h.Key,
			Location: model.LocationHeader,
			Type:     inferScalarType(h.Value),
			Example:  h.Value,
		})
	}

	var exampleBody []byte
	if req.Body != nil {
		bodyParams, eb := extractBody(req.Body)
		params = append(params, bodyParams...)
		exampleBody = eb
	}

	return model.Endpoint{
		ID:          model.EndpointID(method, templateURL, model.SourcePostman),
		Method:      method,
		TemplateURL: templateURL,
		Parameters:  params,
		Description: it.Name,
		ExampleBody: exampleBody,
		Source:      model.SourcePostman,
	}
}

// parseURL accepts either Postman's string URL form or its structured
// object form (both are valid per the v2.1 schema).
func parseURL(raw interface{}) urlObject {
	switch t := raw.(type) {
	case string:
		return urlObject{Raw: t}
	case map[string]interface{}:
		data, _ := json.Marshal(t)
		var u urlObject
		_ = json.Unmarshal(data, &u)
		return u
	default:
		return urlObject{}
	}
}

// urlPath builds a template path from the structured path segments when
// present (Postman represents path variables as ":name" segments),
// falling back to stripping the scheme/host off the raw URL string.
func urlPath(u urlObject) string {
	if len(u.Path) > 0 {
		return "/" + strings.Join(u.Path, "/")
	}
	raw := u.Raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		raw = raw[idx+3:]
	}
	if idx := strings.Index(raw, "/"); idx >= 0 {
		return raw[idx:]
	}
	return "/"
}

func substituteVars(path string, vars map[string]string) string {
	for k, v := range vars {
		path = strings.ReplaceAll(path, "{{"+k+"}}", v)
	}
	return path
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

func extractBody(b *body) ([]model.Parameter, []byte) {
	switch b.Mode {
	case "raw":
		var generic interface{}
		if err := json.Unmarshal([]byte(b.Raw), &generic); err != nil {
			return nil, nil
		}
		var params []model.Parameter
		walkJSONLeaves("", generic, &params)
		return params, []byte(b.Raw)
	case "urlencoded":
		return flatKVParams(b.URLEncoded)
	case "formdata":
		return flatKVParams(b.FormData)
	default:
		return nil, nil
	}
}

func flatKVParams(pairs []kv) ([]model.Parameter, []byte) {
	var params []model.Parameter
	obj := map[string]interface{}{}
	for _, p := range pairs {
		params = append(params, model.Parameter{
			Name:     p.Key,
			Location: model.LocationBody,
			Type:     inferScalarType(p.Value),
			Example:  p.Value,
		})
		obj[p.Key] = p.Value
	}
	data, _ := json.Marshal(obj)
	return params, data
}

// walkJSONLeaves mirrors internal/fingerprint's leaf walk but infers a
// ParamType from each value instead of just recording the dotted path.
func walkJSONLeaves(prefix string, v interface{}, out *[]model.Parameter) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walkJSONLeaves(p, t[k], out)
		}
	case []interface{}:
		for _, item := range t {
			walkJSONLeaves(prefix+"[0]", item, out)
			break
		}
	case string:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeString, Example: t})
	case float64:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeNumber})
	case bool:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeBoolean})
	case nil:
		*out = append(*out, model.Parameter{Name: prefix, Location: model.LocationBody, Type: model.TypeUnknown})
	}
}
