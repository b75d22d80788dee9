// Package openapi parses OpenAPI 3.0.x documents into model.Endpoints
// (spec §4.1): server resolution, path/method enumeration, parameter
// extraction, $ref resolution with a cycle detector, and allOf/oneOf/anyOf
// composition. This is the largest, highest-risk piece of the parser
// layer — the spec explicitly treats the input as adversarial, not just
// malformed, so every external reference is checked before it's followed.
package openapi

import (
	"fmt"
	"os"
	"path/filepath"

	goyaml "github.com/goccy/go-yaml"

	"github.com/abendrothj/doppel/internal/specerr"
)

// document is one loaded and decoded OpenAPI file. Root preserves key
// order via goyaml.MapSlice so the "paths" enumeration contract (spec
// §4.1/§9) survives the decode.
type document struct {
	Path string
	Dir  string
	Root interface{}
}

func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &specerr.ParseError{File: path, NotFound: true}
		}
		return nil, &specerr.ParseError{File: path, Reason: err.Error()}
	}

	var root goyaml.MapSlice
	if err := goyaml.Unmarshal(data, &root); err != nil {
		return nil, &specerr.ParseError{File: path, Reason: fmt.Sprintf("invalid YAML/JSON: %v", err)}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &document{Path: abs, Dir: filepath.Dir(abs), Root: root}, nil
}

// --- generic node accessors -------------------------------------------
//
// goyaml.MapSlice preserves key order for anything decoded straight off
// the wire; map[string]interface{} shows up for nodes we've synthesized
// ourselves (e.g. ref-resolved subtrees merged in allOf). Every accessor
// below understands both.

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case goyaml.MapSlice:
		m := make(map[string]interface{}, len(t))
		for _, item := range t {
			m[fmt.Sprint(item.Key)] = item.Value
		}
		return m, true
	case map[string]interface{}:
		return t, true
	default:
		return nil, false
	}
}

func toSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case goyaml.MapSlice:
		return nil, false
	default:
		return nil, false
	}
}

func get(v interface{}, key string) (interface{}, bool) {
	switch t := v.(type) {
	case goyaml.MapSlice:
		for _, item := range t {
			if fmt.Sprint(item.Key) == key {
				return item.Value, true
			}
		}
		return nil, false
	case map[string]interface{}:
		val, ok := t[key]
		return val, ok
	default:
		return nil, false
	}
}

func getString(v interface{}, key string) (string, bool) {
	val, ok := get(v, key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

func getBool(v interface{}, key string, fallback bool) bool {
	val, ok := get(v, key)
	if !ok {
		return fallback
	}
	b, ok := val.(bool)
	if !ok {
		return fallback
	}
	return b
}

// orderedKeys returns a node's keys in document order when the node
// preserves order (goyaml.MapSlice), or sorted order otherwise — kept
// deterministic either way so repeated parses never differ (spec §8).
func orderedKeys(v interface{}) []string {
	switch t := v.(type) {
	case goyaml.MapSlice:
		keys := make([]string, 0, len(t))
		for _, item := range t {
			keys = append(keys, fmt.Sprint(item.Key))
		}
		return keys
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sortStrings(keys)
		return keys
	default:
		return nil
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
