package pkg

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds s for accent- and case-insensitive comparison: it
// decomposes s (NFD), drops every combining mark (Mn, Mc and Me), recomposes
// what is left (NFC) and lower-cases the result. "Coração" becomes "coracao".
//
// NormalizeText is idempotent. Characters without marks, such as digits,
// punctuation and whitespace, are unchanged apart from case.
func NormalizeText(s string) string {
	if isASCII(s) {
		return strings.ToLower(s)
	}
	// Chained transformers keep state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.M)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid UTF-8; fall back to plain case folding.
		out = s
	}
	return strings.ToLower(out)
}

// ContainsIgnoringAccents reports whether needle occurs in haystack once both
// are folded with NormalizeText. An empty needle matches every haystack.
func ContainsIgnoringAccents(haystack, needle string) bool {
	return strings.Contains(NormalizeText(haystack), NormalizeText(needle))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
