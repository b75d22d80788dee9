package openapi

import (
	"github.com/tidwall/sjson"

	"github.com/abendrothj/doppel/internal/model"
)

// mediaTypePreference is the fixed order requestBody.content media
// types are considered in: JSON is preferred outright, and the rest are
// only consulted when no JSON variant is present (SPEC_FULL.md request
// body rule, decided in DESIGN.md since the distilled spec didn't name
// an explicit tie-break).
var mediaTypePreference = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"application/xml",
	"text/plain",
}

// requestBodyLeaves picks the best media type off a requestBody node and
// walks its schema into body-located Parameters, plus a synthesized
// JSON example body the planner can mutate with sjson.
func requestBodyLeaves(ctx *walkCtx, node interface{}) ([]model.Parameter, []byte, error) {
	body, ok := toMap(node)
	if !ok {
		return nil, nil, nil
	}

	if ref, ok := getString(body, "$ref"); ok {
		resolved, resolvedDoc, release, err := ctx.resolver.resolve(ctx.doc, ref)
		if err != nil {
			if err == errRefCycle {
				return nil, nil, nil
			}
			return nil, nil, err
		}
		defer release()
		sub := &walkCtx{resolver: ctx.resolver, doc: resolvedDoc, depth: ctx.depth + 1}
		return requestBodyLeaves(sub, resolved)
	}

	content, ok := get(body, "content")
	if !ok {
		return nil, nil, nil
	}
	contentMap, ok := toMap(content)
	if !ok {
		return nil, nil, nil
	}

	required := getBool(body, "required", false)

	var mediaType string
	for _, candidate := range mediaTypePreference {
		if _, ok := contentMap[candidate]; ok {
			mediaType = candidate
			break
		}
	}
	if mediaType == "" {
		return nil, nil, nil
	}

	media, ok := toMap(contentMap[mediaType])
	if !ok {
		return nil, nil, nil
	}
	schemaNode, ok := get(media, "schema")
	if !ok {
		return nil, nil, nil
	}

	leaves, err := schemaLeaves(ctx, schemaNode, "", required)
	if err != nil {
		return nil, nil, err
	}
	if len(leaves) == 0 {
		return nil, nil, nil
	}

	params := make([]model.Parameter, 0, len(leaves))
	exampleBody := []byte("{}")
	for _, lf := range leaves {
		if lf.Name == "" {
			continue
		}
		params = append(params, model.Parameter{
			Name:     lf.Name,
			Location: model.LocationBody,
			Required: lf.Required,
			Type:     lf.Type,
			Example:  lf.Example,
			Enum:     lf.Enum,
		})
		exampleBody = withExampleLeaf(exampleBody, lf)
	}
	return params, exampleBody, nil
}

// withExampleLeaf sets one synthesized leaf value into the running
// example body via sjson, so the planner starts from a structurally
// valid JSON document rather than an empty object.
func withExampleLeaf(body []byte, lf leaf) []byte {
	value := sampleValue(lf)
	updated, err := sjson.SetBytes(body, lf.Name, value)
	if err != nil {
		return body
	}
	return updated
}

func sampleValue(lf leaf) interface{} {
	if lf.Example != "" {
		return lf.Example
	}
	switch lf.Type {
	case model.TypeInteger, model.TypeNumber:
		return 1
	case model.TypeBoolean:
		return true
	case model.TypeArray:
		return []interface{}{}
	case model.TypeObject:
		return map[string]interface{}{}
	default:
		return "sample"
	}
}
