package text

import "strings"

// TokenSet is the set of distinct whitespace-separated tokens of a normalized text.
type TokenSet map[string]struct{}

// Tokens splits already normalized text on whitespace.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// NewTokenSet builds the distinct token set of already normalized text.
func NewTokenSet(normalized string) TokenSet {
	tokens := Tokens(normalized)
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// Len returns the number of distinct tokens.
func (s TokenSet) Len() int {
	return len(s)
}

// Intersect returns the number of tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}

	common := 0
	for token := range small {
		if _, ok := large[token]; ok {
			common++
		}
	}
	return common
}
