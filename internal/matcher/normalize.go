package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featuringRe     = regexp.MustCompile(`(?i)\b(feat\.?|ft\.?|featuring)\b.*$`)
	punctuationRe   = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)

	// stripMarks removes combining marks after NFD decomposition, so
	// "Beyoncé" and "Beyonce" normalize identically.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize canonicalizes a title or artist name for comparison: lowercase,
// diacritics stripped, parenthetical and featuring annotations removed,
// punctuation dropped, whitespace collapsed.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = featuringRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
