package openapi

import (
	"fmt"

	"github.com/abendrothj/doppel/internal/model"
)

// leaf is one scalar field discovered while walking a schema tree, keyed
// by its dotted path (spec §4.1's "dotted path" naming: "user.address.zip",
// "items[0].id").
type leaf struct {
	Name     string
	Type     model.ParamType
	Required bool
	Example  string
	Enum     []string
}

// walkCtx threads the ref resolver and the document a schema node was
// found in through recursive calls, along with a depth guard — $ref
// cycles are caught by refResolver, but a pathological schema can also
// nest allOf/properties arbitrarily deep without ever repeating a
// pointer, so we cap recursion independently.
type walkCtx struct {
	resolver *refResolver
	doc      *document
	depth    int
}

const maxSchemaDepth = 64

// schemaLeaves walks one schema node (already or not-yet $ref-resolved)
// and returns its leaf parameters, applying the allOf/oneOf/anyOf
// composition rules from spec §4.1.
func schemaLeaves(ctx *walkCtx, node interface{}, prefix string, required bool) ([]leaf, error) {
	if ctx.depth > maxSchemaDepth {
		return []leaf{{Name: prefix, Type: model.TypeUnknown, Required: required}}, nil
	}
	ctx.depth++
	defer func() { ctx.depth-- }()

	schema, ok := toMap(node)
	if !ok {
		return nil, nil
	}

	if ref, ok := getString(schema, "$ref"); ok {
		resolved, resolvedDoc, release, err := ctx.resolver.resolve(ctx.doc, ref)
		if err != nil {
			if err == errRefCycle {
				return []leaf{{Name: prefix, Type: model.TypeUnknown, Required: required}}, nil
			}
			return nil, err
		}
		defer release()
		sub := &walkCtx{resolver: ctx.resolver, doc: resolvedDoc, depth: ctx.depth}
		return schemaLeaves(sub, resolved, prefix, required)
	}

	if allOf, ok := get(schema, "allOf"); ok {
		branches, _ := toSlice(allOf)
		merged := map[string]leaf{}
		var order []string
		for _, b := range branches {
			leaves, err := schemaLeaves(ctx, b, prefix, required)
			if err != nil {
				return nil, err
			}
			for _, lf := range leaves {
				if existing, seen := merged[lf.Name]; seen {
					merged[lf.Name] = mergeConflict(existing, lf)
				} else {
					merged[lf.Name] = lf
					order = append(order, lf.Name)
				}
			}
		}
		out := make([]leaf, 0, len(order))
		for _, name := range order {
			out = append(out, merged[name])
		}
		return out, nil
	}

	if union, ok := firstPresent(schema, "oneOf", "anyOf"); ok {
		branches, _ := toSlice(union)
		seen := map[string]bool{}
		var out []leaf
		for _, b := range branches {
			leaves, err := schemaLeaves(ctx, b, prefix, false)
			if err != nil {
				return nil, err
			}
			for _, lf := range leaves {
				if seen[lf.Name] {
					continue
				}
				seen[lf.Name] = true
				out = append(out, lf)
			}
		}
		return out, nil
	}

	typeName, _ := getString(schema, "type")
	properties, hasProps := get(schema, "properties")

	switch {
	case typeName == "object" || hasProps:
		propsMap, _ := toMap(properties)
		requiredSet := requiredNames(schema)
		keys := orderedKeys(properties)
		sortStrings(keys)
		var out []leaf
		for _, key := range keys {
			childPrefix := joinPath(prefix, key)
			childLeaves, err := schemaLeaves(ctx, propsMap[key], childPrefix, requiredSet[key])
			if err != nil {
				return nil, err
			}
			out = append(out, childLeaves...)
		}
		return out, nil

	case typeName == "array":
		items, hasItems := get(schema, "items")
		itemPrefix := prefix + "[0]"
		if !hasItems {
			return []leaf{{Name: itemPrefix, Type: model.TypeUnknown, Required: false}}, nil
		}
		return schemaLeaves(ctx, items, itemPrefix, false)

	default:
		return []leaf{{
			Name:     prefix,
			Type:     mapScalarType(typeName),
			Required: required,
			Example:  toStringValue(firstOf(schema, "example", "default")),
			Enum:     enumValues(schema),
		}}, nil
	}
}

// mergeConflict implements allOf's "conflicts resolve to the most
// specific type, else unknown" rule: an unknown branch always loses to
// a concrete one; two different concrete types can't be reconciled.
func mergeConflict(a, b leaf) leaf {
	merged := a
	merged.Required = a.Required || b.Required
	switch {
	case a.Type == model.TypeUnknown:
		merged.Type = b.Type
	case b.Type == model.TypeUnknown:
		merged.Type = a.Type
	case a.Type == b.Type:
		merged.Type = a.Type
	default:
		merged.Type = model.TypeUnknown
	}
	if merged.Example == "" {
		merged.Example = b.Example
	}
	if len(merged.Enum) == 0 {
		merged.Enum = b.Enum
	}
	return merged
}

func requiredNames(schema map[string]interface{}) map[string]bool {
	out := map[string]bool{}
	reqNode, ok := get(schema, "required")
	if !ok {
		return out
	}
	slice, ok := toSlice(reqNode)
	if !ok {
		return out
	}
	for _, v := range slice {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}

func mapScalarType(t string) model.ParamType {
	switch t {
	case "string":
		return model.TypeString
	case "integer":
		return model.TypeInteger
	case "number":
		return model.TypeNumber
	case "boolean":
		return model.TypeBoolean
	case "array":
		return model.TypeArray
	case "object":
		return model.TypeObject
	default:
		return model.TypeUnknown
	}
}

func enumValues(schema map[string]interface{}) []string {
	node, ok := get(schema, "enum")
	if !ok {
		return nil
	}
	slice, _ := toSlice(node)
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		out = append(out, toStringValue(v))
	}
	return out
}

// toStringValue renders an arbitrary decoded scalar (string, number,
// bool) as its string form for Parameter.Example, which is typed as a
// plain string rather than interface{}.
func toStringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstOf(schema map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := get(schema, k); ok {
			return v
		}
	}
	return nil
}

func firstPresent(schema map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := get(schema, k); ok {
			return v, true
		}
	}
	return nil, false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s.%s", prefix, key)
}
