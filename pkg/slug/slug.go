// Package slug derives URL path segments from product names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Letters that do not decompose into a base letter plus marks.
	folds = strings.NewReplacer(
		"ı", "i", "ß", "ss", "ø", "o", "æ", "ae", "œ", "oe", "ł", "l", "đ", "d",
	)
)

// Generate creates a URL-friendly slug from name. Accents are dropped
// ("Crème Brûlée" becomes "creme-brulee") and every run of other
// characters collapses into one hyphen.
func Generate(name string) string {
	s := folds.Replace(strings.ToLower(strings.TrimSpace(name)))

	// A transformer chain keeps state, so it is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
