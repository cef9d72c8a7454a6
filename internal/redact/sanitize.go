package redact

import (
	"regexp"
)

const (
	MaskedValue   = "***MASKED***"
	MaskedEmail   = "***@***.***"
	ScriptRemoved = "[SCRIPT REMOVED]"
	MaskedBTC     = "[BTC_ADDRESS]"
	MaskedETH     = "[ETH_ADDRESS]"
)

var (
	// key = value, key: value. The key and separator survive; only the value
	// is masked, so a second pass rewrites the mask with itself.
	credentialAssignRe = regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|api[_-]?key|apikey|access[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|token|private[_-]?key|client[_-]?secret)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;]+)`)

	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptOpenRe  = regexp.MustCompile(`(?i)<script\b[^>]*>`)

	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Text that talks about examples, tests or code keeps its email addresses.
	demoContextRe = regexp.MustCompile("(?i)\\b(code|example|examples|demo|test|testing|sample|placeholder|dummy|fake|mock)\\b|```")

	btcAddressRe = regexp.MustCompile(`\b(bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`)
	ethAddressRe = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
)

// Sanitize masks sensitive substrings in free text: credential assignments,
// script tags, email addresses (unless the text is clearly about examples or
// code) and cryptocurrency addresses. Everything outside a masked span is
// preserved byte for byte, and Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	out := scriptBlockRe.ReplaceAllString(text, ScriptRemoved)
	out = scriptOpenRe.ReplaceAllString(out, ScriptRemoved)
	out = credentialAssignRe.ReplaceAllString(out, "${1}${2}"+MaskedValue)

	// Context is judged after credential values are gone, so a value like
	// password=test cannot decide whether emails are masked.
	if !demoContextRe.MatchString(out) {
		out = emailRe.ReplaceAllString(out, MaskedEmail)
	}

	out = ethAddressRe.ReplaceAllString(out, MaskedETH)
	out = btcAddressRe.ReplaceAllString(out, MaskedBTC)
	return out
}

// Changed reports whether Sanitize would alter text.
func Changed(text string) bool {
	return Sanitize(text) != text
}
