// Package textfold normalizes free text for accent- and case-insensitive matching.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// String lower-cases s, strips diacritics and collapses runs of whitespace.
// "Športová  PREHLIADKA" folds to "sportova prehliadka".
func String(s string) string {
	// Chained transformers carry state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Contains reports whether needle occurs in haystack after folding both.
func Contains(haystack, needle string) bool {
	n := String(needle)
	if n == "" {
		return false
	}
	return strings.Contains(String(haystack), n)
}

// Equal reports whether a and b fold to the same text.
func Equal(a, b string) bool {
	return String(a) == String(b)
}
