// Package fingerprint turns a JSON response body into the sorted
// leaf-path fingerprint spec §3 attaches to ResponseRecord, and
// provides the structural-equality and leaf-value lookups the Verdict
// Engine's R5/R6 rules need. Grounded on the teacher's
// similarity/structural-comparison helpers in internal/utils/heuristics.go,
// built here on top of github.com/tidwall/gjson instead of hand-rolled
// string diffing.
package fingerprint

import (
	"sort"

	"github.com/tidwall/gjson"
)

// Of walks a JSON body and returns the sorted set of leaf paths it
// contains. A non-JSON or empty body yields nil, per spec §3.
func Of(body []byte) []string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() && !root.IsArray() {
		return nil
	}

	var paths []string
	walk("", root, &paths)
	sort.Strings(paths)
	return paths
}

func walk(prefix string, v gjson.Result, out *[]string) {
	switch {
	case v.IsObject():
		v.ForEach(func(key, val gjson.Result) bool {
			p := key.String()
			if prefix != "" {
				p = prefix + "." + p
			}
			walk(p, val, out)
			return true
		})
	case v.IsArray():
		i := 0
		v.ForEach(func(_, val gjson.Result) bool {
			p := prefix + "[" + itoa(i) + "]"
			walk(p, val, out)
			i++
			return true
		})
	default:
		if prefix != "" {
			*out = append(*out, prefix)
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// StructurallyEqual reports whether two fingerprints contain the same
// set of leaf paths, regardless of order.
func StructurallyEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ContainsLeafValue reports whether any leaf of the JSON body equals
// needle (used by verdict rule R5 to find the victim identifier or a
// sensitive-leaf allowlist value reflected in the response).
func ContainsLeafValue(body []byte, needle string) bool {
	if needle == "" || len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}
	found := false
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		found = leafMatches(v, needle)
		return !found
	})
	return found
}

func leafMatches(v gjson.Result, needle string) bool {
	switch {
	case v.IsObject(), v.IsArray():
		found := false
		v.ForEach(func(_, child gjson.Result) bool {
			found = leafMatches(child, needle)
			return !found
		})
		return found
	default:
		return v.String() == needle
	}
}

// SensitiveKeyNearValue reports whether the body contains needle as a
// substring AND a sensitive key name within the same JSON object (rule
// R6's reflection-vs-leakage distinction, spec §4.5).
func SensitiveKeyNearValue(body []byte, needle string, sensitiveKeys map[string]bool) bool {
	if needle == "" || len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}
	return objectHasBoth(gjson.ParseBytes(body), needle, sensitiveKeys)
}

func objectHasBoth(v gjson.Result, needle string, sensitiveKeys map[string]bool) bool {
	if v.IsObject() {
		hasSensitive := false
		hasValue := false
		v.ForEach(func(k, val gjson.Result) bool {
			if sensitiveKeys[k.String()] {
				hasSensitive = true
			}
			if !val.IsObject() && !val.IsArray() && val.String() == needle {
				hasValue = true
			}
			return true
		})
		if hasSensitive && hasValue {
			return true
		}
	}
	found := false
	if v.IsObject() || v.IsArray() {
		v.ForEach(func(_, child gjson.Result) bool {
			found = objectHasBoth(child, needle, sensitiveKeys)
			return !found
		})
	}
	return found
}
