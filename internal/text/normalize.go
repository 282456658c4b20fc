// Package text prepares raw resume and job description text for embedding
// and keyword analysis.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// keptPunctuation lists the only non-word characters that survive normalization.
const keptPunctuation = ".,;:!?"

// Normalize cleans raw text before it is embedded.
//
// Whitespace runs collapse to a single space, the text is lowercased and every
// character that is not a letter, a number, an underscore, whitespace or one of
// ". , ; : ! ?" is replaced with a space. Repeated identical punctuation marks
// collapse to one. Empty input yields empty output. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(collapseSpaces(s))

	var b strings.Builder
	b.Grow(len(s))

	prev := rune(-1)
	for _, r := range s {
		switch {
		case isWordRune(r), unicode.IsSpace(r):
		case strings.ContainsRune(keptPunctuation, r):
			if r == prev {
				continue
			}
		default:
			r = ' '
		}
		b.WriteRune(r)
		prev = r
	}

	return collapseSpaces(b.String())
}

// Length returns the number of characters (not bytes) in s.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
