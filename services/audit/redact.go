package audit

import (
	"regexp"
	"strings"
)

// Queries arrive as free text about personal situations, so the audit log
// must not retain contact details or government identifiers verbatim.
// Redaction happens once, just before persistence; the live pipeline sees
// the original query.

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	phonePattern = regexp.MustCompile(`(\+?1[-.\s]?)?(\([0-9]{3}\)|\b[0-9]{3})[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)

	ssnDashedPattern = regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)
	ssnPlainPattern  = regexp.MustCompile(`\b[0-9]{9}\b`)
)

// RedactQuery replaces contact details and SSNs in a query with typed
// placeholders. The result is safe to store in the audit log.
func RedactQuery(query string) string {
	out := emailPattern.ReplaceAllString(query, "[email]")
	out = ssnDashedPattern.ReplaceAllString(out, "[ssn]")
	out = ssnPlainPattern.ReplaceAllStringFunc(out, func(m string) string {
		if looksLikeSSN(m) {
			return "[ssn]"
		}
		return m
	})
	out = phonePattern.ReplaceAllString(out, "[phone]")
	return out
}

// looksLikeSSN filters 9-digit numbers using SSN allocation rules, so
// ordinary figures in a query are not over-redacted.
func looksLikeSSN(s string) bool {
	if len(s) != 9 {
		return false
	}
	if s[:3] == "000" || s[3:5] == "00" || s[5:] == "0000" {
		return false
	}
	if strings.HasPrefix(s, "666") || strings.HasPrefix(s, "9") {
		return false
	}
	return true
}
