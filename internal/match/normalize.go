// Package match scores how well an external search result corresponds to a
// catalog wine.
package match

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, strips diacritics and punctuation, and collapses
// whitespace. Only [a-z0-9 ] survives.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// Similarity returns a [0,1] score for two strings after normalization:
// 1 - editDistance/maxLen, with identical (or both empty) strings scoring 1.
func Similarity(a, b string) float64 {
	return similarityNormalized(Normalize(a), Normalize(b))
}

func similarityNormalized(na, nb string) float64 {
	if na == nb {
		return 1.0
	}
	longest := max(len(na), len(nb))
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.Distance(na, nb, nil)
	return 1.0 - float64(d)/float64(longest)
}
