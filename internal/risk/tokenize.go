package risk

import "strings"

// Tokenize splits a parameter name into lowercase tokens across
// camelCase, snake_case, kebab-case, and dotted/bracketed body paths,
// mirroring the teacher's name-splitting in url_normalizer.go.
func Tokenize(name string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '[' || r == ']':
			flush()
		case r >= 'A' && r <= 'Z':
			// camelCase boundary: previous rune was lowercase, or next
			// rune (after an acronym run) is lowercase.
			if i > 0 {
				prev := runes[i-1]
				prevLower := prev >= 'a' && prev <= 'z'
				nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				if prevLower || (cur.Len() > 0 && nextLower) {
					flush()
				}
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
