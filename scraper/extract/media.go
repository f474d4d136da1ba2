package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/models"
)

// DefaultImageExclude drops site chrome from the image list.
var DefaultImageExclude = []string{"logo", "icon", "favicon"}

// Images returns the pictures matched by selector, skipping those whose
// source contains any of exclude (case-insensitive). Relative sources are
// resolved against base when it is set.
func Images(doc *goquery.Document, selector string, exclude []string, base string) []models.Image {
	if selector == "" {
		selector = "img"
	}
	if exclude == nil {
		exclude = DefaultImageExclude
	}

	images := []models.Image{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" {
			return
		}
		lower := strings.ToLower(src)
		for _, ex := range exclude {
			if strings.Contains(lower, strings.ToLower(ex)) {
				return
			}
		}
		images = append(images, models.Image{
			Src: ResolveURL(base, src),
			Alt: strings.TrimSpace(s.AttrOr("alt", "")),
		})
	})
	return images
}
