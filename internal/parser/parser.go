// Package parser dispatches a scan input (file or directory) to the
// right format-specific parser — OpenAPI, Postman, or Bruno — and
// returns a flat list of model.Endpoints (spec §4.1). Format is
// detected from content, not just file extension, since a Postman
// collection and an OpenAPI document are both plain JSON.
package parser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/abendrothj/doppel/internal/model"
	"github.com/abendrothj/doppel/internal/parser/bruno"
	"github.com/abendrothj/doppel/internal/parser/openapi"
	"github.com/abendrothj/doppel/internal/parser/postman"
	"github.com/abendrothj/doppel/internal/specerr"
)

// Parse loads input (a single OpenAPI/Postman file or a directory of
// .bru files) and returns every endpoint discovered, along with the
// spec-declared base URL if one exists (OpenAPI servers[0] only — the
// CLI's --base-url flag always takes priority when set).
func Parse(input string) ([]model.Endpoint, string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, "", &specerr.ParseError{File: input, Reason: err.Error()}
	}

	if info.IsDir() {
		endpoints, err := bruno.ParseDir(input)
		return endpoints, "", err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, "", &specerr.ParseError{File: input, Reason: err.Error()}
	}

	if strings.HasSuffix(input, ".bru") {
		ep, ok, err := bruno.ParseFile(filepath.Base(input), data)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", nil
		}
		return []model.Endpoint{ep}, "", nil
	}

	if postman.Detect(input, data) {
		endpoints, err := postman.Parse(input, data)
		return endpoints, "", err
	}

	if openapi.Detect(input) {
		endpoints, err := openapi.Parse(input)
		if err != nil {
			return nil, "", err
		}
		return endpoints, openapi.BaseURL(input), nil
	}

	return nil, "", &specerr.ParseError{File: input, Reason: "unrecognized input format: not OpenAPI 3.0.x, Postman v2.1, or Bruno"}
}
