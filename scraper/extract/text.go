// Package extract holds the field extractors shared by every source. Each
// function reads a parsed document and returns plain values; none of them
// keeps state or returns an error, a missing node simply yields an empty
// result.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRegexp = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces runs of whitespace with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(s, " "))
}

// ResolveURL resolves ref against base. ref is returned unchanged when base
// is empty or either value does not parse.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == "" || ref == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// First returns the text of the first node, across selectors in order, that
// has non-empty text.
func First(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = CollapseWhitespace(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// Title tries the custom selectors, then the first h1, then the part of the
// page title before its first "|".
func Title(doc *goquery.Document, selectors []string) string {
	if t := First(doc, selectors...); t != "" {
		return t
	}
	if t := First(doc, "h1"); t != "" {
		return t
	}
	title := doc.Find("title").First().Text()
	if i := strings.Index(title, "|"); i >= 0 {
		title = title[:i]
	}
	return CollapseWhitespace(title)
}

// FullText returns the visible text of the whole document, whitespace
// collapsed.
func FullText(doc *goquery.Document) string {
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	root = root.Clone()
	root.Find("script, style, noscript, template").Remove()
	return CollapseWhitespace(root.Text())
}

// Paragraphs returns the trimmed text of the nodes matching selectors whose
// length is at least minLength characters. Repeated blocks are kept once.
func Paragraphs(doc *goquery.Document, selectors []string, minLength int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := CollapseWhitespace(s.Text())
			if len([]rune(text)) < minLength || seen[text] {
				return
			}
			seen[text] = true
			out = append(out, text)
		})
	}
	return out
}

// List returns the non-empty texts of every node matching selectors, once
// each. Used for categories, schedule and prices.
func List(doc *goquery.Document, selectors []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := CollapseWhitespace(s.Text())
			if text == "" || seen[text] {
				return
			}
			seen[text] = true
			out = append(out, text)
		})
	}
	return out
}

// Labeled looks for a node whose text starts with one of labels, e.g.
// "Quando: 7-8 Novembre", and returns what follows the label. When the
// label node holds nothing else, the text of its next sibling is used.
func Labeled(doc *goquery.Document, selectors, labels []string) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := CollapseWhitespace(s.Text())
			for _, label := range labels {
				if !hasPrefixFold(text, label) {
					continue
				}
				found = strings.TrimSpace(text[len(label):])
				if found == "" {
					found = CollapseWhitespace(s.Next().Text())
				}
				if found != "" {
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Meta holds the page-level metadata tags.
type Meta struct {
	Description string
	OgImage     string
	OgTitle     string
}

// MetaTags reads the description and Open Graph tags. Missing tags are
// empty strings.
func MetaTags(doc *goquery.Document) Meta {
	content := func(sel string) string {
		v, _ := doc.Find(sel).First().Attr("content")
		return strings.TrimSpace(v)
	}
	return Meta{
		Description: content(`meta[name="description"]`),
		OgImage:     content(`meta[property="og:image"]`),
		OgTitle:     content(`meta[property="og:title"]`),
	}
}

// JSONLDBlocks returns the raw contents of the JSON-LD script tags.
func JSONLDBlocks(doc *goquery.Document) []string {
	var out []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if raw := strings.TrimSpace(s.Text()); raw != "" {
			out = append(out, raw)
		}
	})
	return out
}
