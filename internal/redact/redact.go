// Package redact masks sensitive substrings. Sanitize is the user-facing
// transform applied to prompts; Redact is the stricter pass every string goes
// through before it reaches the audit log.
package redact

import (
	"regexp"
)

// tokenPatterns match provider credentials that carry no key name, so the
// whole token is masked.
var tokenPatterns = []*regexp.Regexp{
	// AWS
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),

	// Private keys
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Slack tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),

	// Stripe
	regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`),
}

var (
	// Bearer tokens keep the scheme word.
	bearerRe = regexp.MustCompile(`(?i)\b(bearer\s+)[A-Za-z0-9_\-.=]{20,}`)

	// Basic auth in URLs keeps scheme and host.
	basicAuthRe = regexp.MustCompile(`(https?://)[^:/\s]+:[^@/\s]+@`)

	// Environment-style secret assignments: AWS_SECRET_ACCESS_KEY=..., GH_TOKEN=...
	envSecretRe = regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:SECRET|TOKEN|PASSWORD|PASSWD|API_KEY|ACCESS_KEY|PRIVATE_KEY|DATABASE_URL)[A-Z0-9_]*)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;]+)`)
)

// Redact applies Sanitize and then masks provider tokens, bearer tokens, URL
// credentials and secret-looking environment assignments.
func Redact(input string) string {
	result := Sanitize(input)
	result = envSecretRe.ReplaceAllString(result, "${1}${2}"+MaskedValue)
	result = bearerRe.ReplaceAllString(result, "${1}"+MaskedValue)
	result = basicAuthRe.ReplaceAllString(result, "${1}"+MaskedValue+"@")
	for _, pattern := range tokenPatterns {
		result = pattern.ReplaceAllString(result, MaskedValue)
	}
	return result
}

// RedactValue walks a decoded JSON value and redacts every string in it,
// returning a copy. Maps and slices are rebuilt; other values pass through.
func RedactValue(v any) any {
	switch t := v.(type) {
	case string:
		return Redact(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = RedactValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = RedactValue(val)
		}
		return out
	default:
		return v
	}
}

// RedactMap is RedactValue for the common object case. nil stays nil.
func RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return RedactValue(m).(map[string]any)
}
