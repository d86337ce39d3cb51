// Package textnorm normalizes display text the way the dashboard stores it:
// upper case, no diacritics, surrounding whitespace trimmed.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks after canonical decomposition,
// so "Peñón" becomes "Penon".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize is the canonical form used for storage and comparison.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(StripDiacritics(s)))
}

// Contains reports whether needle occurs in haystack ignoring case and
// diacritics. An empty needle matches everything.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Normalize(haystack), n)
}

// Digits keeps only ASCII digits and truncates to max runes (max <= 0 means
// no limit).
func Digits(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if max > 0 && b.Len() >= max {
				break
			}
		}
	}
	return b.String()
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
