// Package normalizer canonicalizes free text for catalog matching.
// Both the exact substring phase and the fuzzy similarity phase compare
// normalized strings, so Normalize must stay stable and idempotent.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips accents to their base letters, replaces
// every rune that is not a lowercase letter, digit, or whitespace with a
// space, then collapses whitespace runs and trims. Empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)

	stripped, _, err := transform.String(stripAccents, lowered)
	if err != nil {
		// Malformed input keeps its accented form rather than failing;
		// Normalize is total.
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
