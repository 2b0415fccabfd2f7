package service

import "regexp"

// PII redaction runs before any user text is accumulated or persisted.
// Emails, Turkish phone numbers and 11-digit national ids are replaced
// with fixed placeholders.
var (
	emailPattern = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+?90)?\s*\(?\d{3}\)?\s*\d{3}\s*\d{2}\s*\d{2}\b`)
	idPattern    = regexp.MustCompile(`\b\d{11}\b`)
)

// RedactPII strips emails, phone numbers and 11-digit ids from text.
func RedactPII(text string) string {
	t := emailPattern.ReplaceAllString(text, "[REDACTED_EMAIL]")
	t = phonePattern.ReplaceAllString(t, "[REDACTED_PHONE]")
	t = idPattern.ReplaceAllString(t, "[REDACTED_ID]")
	return t
}
