package festival

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/config"
	"festival-scraper/models"
	"festival-scraper/scraper/extract"
)

var (
	latLngRegexp     = regexp.MustCompile(`^\s*(-?\d{1,2}(?:\.\d+)?)\s*,\s*(-?\d{1,3}(?:\.\d+)?)\s*$`)
	atLatLngRegexp   = regexp.MustCompile(`@(-?\d{1,2}\.\d+),(-?\d{1,3}\.\d+)`)
	embedLatLngRegex = regexp.MustCompile(`!3d(-?\d{1,2}\.\d+)!4d(-?\d{1,3}\.\d+)`)
	provinceRegexp   = regexp.MustCompile(`\(([A-Z]{2})\)`)
)

// map URL query parameters that carry "lat,lng", in lookup order
var coordParams = []string{"q", "ll", "center", "query", "daddr", "destination"}

// CoordinatesFromURL reads a lat,lng pair out of a map link or embed URL.
func CoordinatesFromURL(raw string) (*models.GeoCoordinates, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	q := u.Query()
	for _, key := range coordParams {
		if m := latLngRegexp.FindStringSubmatch(q.Get(key)); m != nil {
			return toCoordinates(m[1], m[2])
		}
	}
	if m := atLatLngRegexp.FindStringSubmatch(u.Path); m != nil {
		return toCoordinates(m[1], m[2])
	}
	if m := embedLatLngRegex.FindStringSubmatch(q.Get("pb")); m != nil {
		return toCoordinates(m[1], m[2])
	}
	return nil, false
}

func toCoordinates(latS, lngS string) (*models.GeoCoordinates, bool) {
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, false
	}
	if lat == 0 && lng == 0 {
		return nil, false
	}
	return &models.GeoCoordinates{Latitude: lat, Longitude: lng}, true
}

// MapCoordinates walks the configured coordinate sources in priority order
// and returns the first pair found, with the name of the source that gave it.
func MapCoordinates(doc *goquery.Document, cfg config.CoordinatesConfig) (*models.GeoCoordinates, string) {
	priority := cfg.Priority
	if len(priority) == 0 {
		priority = config.DefaultCoordinatePriority
	}
	for _, src := range priority {
		var geo *models.GeoCoordinates
		switch src {
		case config.CoordsMapLink:
			geo = firstURLCoordinates(doc, cfg.MapLinkSelector, "href")
		case config.CoordsIframe:
			geo = firstURLCoordinates(doc, cfg.IframeSelector, "src")
		case config.CoordsData:
			geo = dataCoordinates(doc, cfg)
		}
		if geo != nil {
			return geo, src
		}
	}
	return nil, ""
}

func firstURLCoordinates(doc *goquery.Document, selector, attr string) *models.GeoCoordinates {
	if selector == "" {
		return nil
	}
	var geo *models.GeoCoordinates
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if g, ok := CoordinatesFromURL(s.AttrOr(attr, "")); ok {
			geo = g
			return false
		}
		return true
	})
	return geo
}

func dataCoordinates(doc *goquery.Document, cfg config.CoordinatesConfig) *models.GeoCoordinates {
	selector := cfg.DataSelector
	if selector == "" {
		selector = "[" + cfg.LatAttr + "][" + cfg.LngAttr + "]"
	}
	var geo *models.GeoCoordinates
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if g, ok := toCoordinates(strings.TrimSpace(s.AttrOr(cfg.LatAttr, "")), strings.TrimSpace(s.AttrOr(cfg.LngAttr, ""))); ok {
			geo = g
			return false
		}
		return true
	})
	return geo
}

// Province returns the province from the configured selectors, then from a
// "(XX)" code anywhere in text when the regex fallback is enabled.
func Province(doc *goquery.Document, cfg config.ProvinceConfig, text string) string {
	if v := extract.First(doc, cfg.Selectors...); v != "" {
		if m := provinceRegexp.FindStringSubmatch(v); m != nil {
			return m[1]
		}
		return v
	}
	if cfg.Regex {
		if m := provinceRegexp.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// attachCoordinates puts geo on the structured data of f, synthesising an
// Event node when the page had none. Coordinates already present in JSON-LD
// are kept.
func attachCoordinates(f *models.Festival, geo *models.GeoCoordinates, placeName string) {
	if f.StructuredData == nil {
		f.StructuredData = &models.EventData{
			Type:      "Event",
			Name:      f.Title,
			StartDate: f.StartDate,
			EndDate:   f.EndDate,
		}
	}
	sd := f.StructuredData

	switch {
	case sd.Location == nil:
		sd.Location = models.PlaceLocation(&models.Place{Type: "Place", Name: placeName, Geo: geo})
	case sd.Location.IsPlace():
		if sd.Location.Place.Geo == nil {
			sd.Location.Place.Geo = geo
		}
	default:
		name := sd.Location.Text
		if name == "" {
			name = placeName
		}
		sd.Location = models.PlaceLocation(&models.Place{Type: "Place", Name: name, Geo: geo})
	}
}
