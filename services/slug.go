package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnumRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL slug: lowercase ASCII, diacritics
// stripped, every run of other characters collapsed to one hyphen, no
// leading or trailing hyphen.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, title)
	if err != nil {
		s = title
	}
	s = nonAlnumRegexp.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
