package model

// Location is where a Parameter is carried on the wire.
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationBody   Location = "body"
)

// ParamType is the parser's best-effort declared type for a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeUnknown ParamType = "unknown"
)

// Parameter is one named, located value an Endpoint accepts. A Body
// parameter with a nested Name (e.g. "user.address.zip") represents a
// leaf of the request body schema after $ref resolution and
// composition (spec §3).
type Parameter struct {
	Name     string
	Location Location
	Required bool
	Type     ParamType
	Example  string
	Enum     []string

	Risk RiskScore
}

// IsUUIDLike reports whether the parameter's example value (or, absent
// one, its name) looks like a UUID — used by the risk engine's type
// signal.
func (p Parameter) IsUUIDLike() bool {
	s := p.Example
	if s == "" {
		return false
	}
	return looksLikeUUID(s)
}

func looksLikeUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}
