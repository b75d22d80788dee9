package openapi

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/abendrothj/doppel/internal/model"
)

// methodKeys maps the fixed model.Method enumeration order to the
// lowercase operation keys OpenAPI path items use.
var methodKeys = map[model.Method]string{
	model.MethodGet:     "get",
	model.MethodPost:    "post",
	model.MethodPut:     "put",
	model.MethodPatch:   "patch",
	model.MethodDelete:  "delete",
	model.MethodHead:    "head",
	model.MethodOptions: "options",
}

// Parse loads an OpenAPI 3.0.x document from path and returns every
// endpoint it declares, in fixed path-then-method order (spec §4.1).
func Parse(path string) ([]model.Endpoint, error) {
	root, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	pathsNode, ok := get(root.Root, "paths")
	if !ok {
		return nil, nil
	}

	paths := orderedmap.New[string, interface{}]()
	for _, key := range orderedKeys(pathsNode) {
		val, _ := get(pathsNode, key)
		paths.Set(key, val)
	}

	resolver := newRefResolver(root)

	var endpoints []model.Endpoint
	for pair := paths.Oldest(); pair != nil; pair = pair.Next() {
		pathEndpoints, err := parsePathItem(resolver, root, pair.Key, pair.Value)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, pathEndpoints...)
	}

	return endpoints, nil
}

// parsePathItem builds every operation's Endpoint for one "paths" entry.
// It is its own function (rather than a loop body) so a $ref'd path
// item's release() can be deferred for the full duration it's in use.
func parsePathItem(resolver *refResolver, root *document, pathTemplate string, pathItemNode interface{}) ([]model.Endpoint, error) {
	pathItem, ok := toMap(pathItemNode)
	if !ok {
		return nil, nil
	}
	pathDoc := root
	if ref, ok := getString(pathItem, "$ref"); ok {
		resolved, resolvedDoc, release, err := resolver.resolve(root, ref)
		if err != nil {
			if err == errRefCycle {
				return nil, nil
			}
			return nil, err
		}
		defer release()
		pathItem, ok = toMap(resolved)
		if !ok {
			return nil, nil
		}
		pathDoc = resolvedDoc
	}

	pathLevelParams, _ := get(pathItem, "parameters")

	var endpoints []model.Endpoint
	for _, method := range model.MethodOrder() {
		opKey := methodKeys[method]
		opNode, ok := pathItem[opKey]
		if !ok {
			continue
		}
		op, ok := toMap(opNode)
		if !ok {
			continue
		}

		ctx := &walkCtx{resolver: resolver, doc: pathDoc}

		opLevelParams, _ := get(op, "parameters")
		params, err := collectParameters(ctx, pathLevelParams, opLevelParams)
		if err != nil {
			return nil, err
		}

		var exampleBody []byte
		if rb, ok := get(op, "requestBody"); ok {
			bodyParams, body, err := requestBodyLeaves(ctx, rb)
			if err != nil {
				return nil, err
			}
			params = append(params, bodyParams...)
			exampleBody = body
		}

		description, _ := getString(op, "summary")
		if description == "" {
			description, _ = getString(op, "description")
		}

		endpoints = append(endpoints, model.Endpoint{
			ID:          model.EndpointID(method, pathTemplate, model.SourceOpenAPI),
			Method:      method,
			TemplateURL: pathTemplate,
			Parameters:  params,
			Description: description,
			ExampleBody: exampleBody,
			Source:      model.SourceOpenAPI,
		})
	}
	return endpoints, nil
}

// BaseURL returns the resolved server URL declared in the document at
// path, or "" if it has none (the CLI --base-url flag always wins over
// this when both are present).
func BaseURL(path string) string {
	root, err := loadDocument(path)
	if err != nil {
		return ""
	}
	return resolveServerURL(root.Root)
}

// Detect reports whether a decoded document looks like an OpenAPI 3.0.x
// spec (used by the parser-layer format dispatcher).
func Detect(path string) bool {
	root, err := loadDocument(path)
	if err != nil {
		return false
	}
	version, ok := getString(root.Root, "openapi")
	if !ok {
		return false
	}
	return strings.HasPrefix(version, "3.0") || strings.HasPrefix(version, "3.1")
}
