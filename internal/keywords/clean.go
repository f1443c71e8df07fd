package keywords

import (
	"strings"
	"unicode"
)

// CleanText removes every rune that is not a letter, digit, or whitespace and
// trims the result. Internal whitespace is left as-is, so removing a dash
// between two spaces leaves both spaces behind.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanKeywords trims and cleans each raw token, dropping tokens that end up empty.
func CleanKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if c := CleanText(strings.TrimSpace(kw)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SplitList splits a comma-separated keyword list, trimming tokens and
// dropping empty ones. No cleaning is applied.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
