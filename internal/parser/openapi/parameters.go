package openapi

import (
	"github.com/abendrothj/doppel/internal/model"
)

// collectParameters resolves a "parameters" array (path-item level or
// operation level) into model.Parameters, following $ref on each entry.
// Operation-level entries override path-level entries with the same
// (name, location) per OpenAPI's merge rule.
func collectParameters(ctx *walkCtx, pathLevel, opLevel interface{}) ([]model.Parameter, error) {
	merged := map[string]model.Parameter{}
	var order []string

	apply := func(node interface{}) error {
		slice, ok := toSlice(node)
		if !ok {
			return nil
		}
		for _, item := range slice {
			p, err := resolveParameter(ctx, item)
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			key := string(p.Location) + ":" + p.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = *p
		}
		return nil
	}

	if err := apply(pathLevel); err != nil {
		return nil, err
	}
	if err := apply(opLevel); err != nil {
		return nil, err
	}

	out := make([]model.Parameter, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out, nil
}

func resolveParameter(ctx *walkCtx, node interface{}) (*model.Parameter, error) {
	m, ok := toMap(node)
	if !ok {
		return nil, nil
	}

	if ref, ok := getString(m, "$ref"); ok {
		resolved, resolvedDoc, release, err := ctx.resolver.resolve(ctx.doc, ref)
		if err != nil {
			if err == errRefCycle {
				return nil, nil
			}
			return nil, err
		}
		defer release()
		sub := &walkCtx{resolver: ctx.resolver, doc: resolvedDoc, depth: ctx.depth + 1}
		return resolveParameter(sub, resolved)
	}

	name, _ := getString(m, "name")
	if name == "" {
		return nil, nil
	}
	in, _ := getString(m, "in")
	loc := mapLocation(in)
	required := getBool(m, "required", loc == model.LocationPath)

	paramType := model.TypeUnknown
	example := ""
	var enum []string
	if schemaNode, ok := get(m, "schema"); ok {
		if leaves, err := schemaLeaves(ctx, schemaNode, "", required); err == nil && len(leaves) == 1 {
			paramType = leaves[0].Type
			example = leaves[0].Example
			enum = leaves[0].Enum
		}
	}
	if example == "" {
		example = toStringValue(firstOf(m, "example"))
	}

	return &model.Parameter{
		Name:     name,
		Location: loc,
		Required: required,
		Type:     paramType,
		Example:  example,
		Enum:     enum,
	}, nil
}

func mapLocation(in string) model.Location {
	switch in {
	case "path":
		return model.LocationPath
	case "query":
		return model.LocationQuery
	case "header":
		return model.LocationHeader
	default:
		return model.LocationQuery
	}
}
