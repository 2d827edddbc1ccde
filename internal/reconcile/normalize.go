package reconcile

import (
	"regexp"
	"strings"
)

var (
	dateTokenRe        = regexp.MustCompile(`\b\d{2}/\d{2}\b`)
	installmentTokenRe = regexp.MustCompile(`(?i)\b\d+x\b`)
	punctRe            = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// Normalize lower-cases a description and strips date tokens (DD/MM),
// installment tokens ("10x") and punctuation, collapsing whitespace.
// Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = dateTokenRe.ReplaceAllString(s, " ")
	s = installmentTokenRe.ReplaceAllString(s, " ")
	s = punctRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
