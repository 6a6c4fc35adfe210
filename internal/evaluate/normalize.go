// Package evaluate decides whether a submitted answer counts as correct.
package evaluate

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped from both sides before comparing titles.
var stopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "the": {}, "de": {}, "del": {},
	"un": {}, "una": {}, "y": {}, "en": {}, "a": {}, "al": {}, "por": {},
	"con": {}, "para": {}, "es": {}, "le": {},
}

// Normalize folds a title into its comparable form: lower case, no
// diacritics, no punctuation, no stopwords, single spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	// transform.Chain keeps state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
