package usecase

import (
	"regexp"
)

// PII scrubbing patterns. Regex-based and best-effort; this is a
// mitigation, not a guarantee of complete PII removal. Ordering matters:
// longer digit sequences (cards) are masked before shorter ones (SSN,
// phone) so a card number is never half-eaten by the phone pattern.
var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){12,15}\d\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,2}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`)
)

// SanitizeText replaces recognizable PII substrings with fixed placeholder
// tokens. The transform is pure and idempotent: placeholders contain no
// digits or addresses, so a second pass finds nothing to replace.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	text = urlPattern.ReplaceAllString(text, "[URL]")
	text = cardPattern.ReplaceAllString(text, "[CARD]")
	text = ssnPattern.ReplaceAllString(text, "[SSN]")
	text = phonePattern.ReplaceAllString(text, "[PHONE]")
	return text
}
