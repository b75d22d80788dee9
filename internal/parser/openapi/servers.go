package openapi

import (
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// resolveServerURL expands the first server entry's url using its
// variables' default values (RFC 6570 expansion via uritemplate), so a
// spec-declared server like "https://api.example.com/{version}" with
// variables.version.default == "v2" becomes a concrete base URL. The
// --base-url CLI flag always takes priority over this (spec §6); it
// only fills in when no override is given.
func resolveServerURL(root interface{}) string {
	servers, ok := get(root, "servers")
	if !ok {
		return ""
	}
	slice, ok := toSlice(servers)
	if !ok || len(slice) == 0 {
		return ""
	}
	first, ok := toMap(slice[0])
	if !ok {
		return ""
	}
	rawURL, ok := getString(first, "url")
	if !ok {
		return ""
	}

	values := uritemplate.Values{}
	if vars, ok := get(first, "variables"); ok {
		varsMap, _ := toMap(vars)
		for name, def := range varsMap {
			defMap, ok := toMap(def)
			if !ok {
				continue
			}
			if dflt, ok := getString(defMap, "default"); ok {
				values = values.Set(name, uritemplate.String(dflt))
			}
		}
	}

	tmpl, err := uritemplate.New(rawURL)
	if err != nil {
		return strings.TrimSuffix(rawURL, "/")
	}
	expanded, err := tmpl.Expand(values)
	if err != nil {
		return strings.TrimSuffix(rawURL, "/")
	}
	return strings.TrimSuffix(expanded, "/")
}
