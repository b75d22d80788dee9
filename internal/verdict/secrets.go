package verdict

import (
	"regexp"
	"strings"

	"github.com/abendrothj/doppel/internal/model"
)

// secretPatterns is the fixed credential-shaped-string set, grounded on
// the teacher's createSecretRegexPatterns in internal/driven/analyzer_utils.go.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_\-\s]*key[_\-\s]*[=:]\s*)(['"][a-zA-Z0-9]{16,}['"]|[a-zA-Z0-9]{16,})`),
	regexp.MustCompile(`(?i)(access[_\-\s]*token[_\-\s]*[=:]\s*)(['"][a-zA-Z0-9]{20,}['"]|[a-zA-Z0-9]{20,})`),
	regexp.MustCompile(`(?i)(secret[_\-\s]*key[_\-\s]*[=:]\s*)(['"][a-zA-Z0-9]{16,}['"]|[a-zA-Z0-9]{16,})`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
	regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`sk_live_[a-zA-Z0-9]{24}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`),
}

// ScanForSecrets inspects a candidate response body for credential-shaped
// strings and appends one Evidence entry per distinct match. It never
// changes f.Verdict — a secret leak sharpens an existing VULNERABLE or
// UNCERTAIN finding's evidence, it doesn't manufacture a new one.
func ScanForSecrets(f *model.Finding, body []byte) {
	if len(body) == 0 {
		return
	}
	text := string(body)
	seen := map[string]bool{}
	for _, pattern := range secretPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			secretType := identifySecretType(match)
			f.Evidence = append(f.Evidence, model.Evidence{
				Kind:   "secret:" + secretType,
				Detail: truncateSecret(match),
			})
		}
	}
}

func identifySecretType(match string) string {
	lower := strings.ToLower(match)

	typeMap := []struct{ pattern, label string }{
		{"akia", "aws-access-key"},
		{"aiza", "google-api-key"},
		{"ghp_", "github-token"},
		{"sk_live", "stripe-secret-key"},
		{"eyj", "jwt"},
		{"api", "api-key"},
		{"token", "access-token"},
		{"secret", "secret-key"},
	}
	for _, entry := range typeMap {
		if strings.Contains(lower, entry.pattern) {
			return entry.label
		}
	}
	return "unknown-secret"
}

// truncateSecret redacts the middle of a matched secret so the report
// never carries a usable credential in the clear.
func truncateSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
