package festival

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/config"
	"festival-scraper/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestCoordinatesFromURL(t *testing.T) {
	tests := []struct {
		url      string
		lat, lng float64
		ok       bool
	}{
		{"https://maps.google.com/?q=45.0055,11.2931", 45.0055, 11.2931, true},
		{"https://maps.google.com/maps?ll=45.5,9.2&z=15", 45.5, 9.2, true},
		{"https://www.google.com/maps/embed/v1/view?key=k&center=45.53,10.21", 45.53, 10.21, true},
		{"https://www.google.com/maps/place/Mantova/@45.1564,10.7914,14z", 45.1564, 10.7914, true},
		{"https://www.google.com/maps/embed?pb=!1m18!1m12!3d45.0667!4d10.9167!5e0", 45.0667, 10.9167, true},
		{"https://maps.google.com/?q=Piazza+Sordello,+Mantova", 0, 0, false},
		{"https://maps.google.com/?q=95.0,11.0", 0, 0, false},
		{"https://maps.google.com/?q=0,0", 0, 0, false},
		{"::not a url", 0, 0, false},
	}
	for _, tt := range tests {
		g, ok := CoordinatesFromURL(tt.url)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v; want %v", tt.url, ok, tt.ok)
			continue
		}
		if ok && (g.Latitude != tt.lat || g.Longitude != tt.lng) {
			t.Errorf("%s: got %v,%v", tt.url, g.Latitude, g.Longitude)
		}
	}
}

const mapsPage = `<body>
<a href="https://maps.google.com/?q=45.1,10.1">Link</a>
<iframe src="https://www.google.com/maps/embed/v1/place?key=k&q=45.2,10.2"></iframe>
<div id="event-map" data-lat="45.3" data-lng="10.3"></div>
</body>`

func coordsConfig(priority ...string) config.CoordinatesConfig {
	return config.CoordinatesConfig{
		Priority:        priority,
		MapLinkSelector: `a[href*="maps.google"]`,
		IframeSelector:  `iframe[src*="maps"]`,
		DataSelector:    "#event-map",
		LatAttr:         "data-lat",
		LngAttr:         "data-lng",
	}
}

func TestMapCoordinatesPriority(t *testing.T) {
	doc := mustDoc(t, mapsPage)
	tests := []struct {
		priority []string
		wantLat  float64
		wantFrom string
	}{
		{[]string{config.CoordsMapLink, config.CoordsIframe, config.CoordsData}, 45.1, config.CoordsMapLink},
		{[]string{config.CoordsIframe, config.CoordsMapLink}, 45.2, config.CoordsIframe},
		{[]string{config.CoordsData, config.CoordsMapLink}, 45.3, config.CoordsData},
		{nil, 45.1, config.CoordsMapLink},
	}
	for _, tt := range tests {
		g, from := MapCoordinates(doc, coordsConfig(tt.priority...))
		if g == nil || g.Latitude != tt.wantLat || from != tt.wantFrom {
			t.Errorf("priority %v: got %+v from %q", tt.priority, g, from)
		}
	}

	g, from := MapCoordinates(mustDoc(t, `<p>no map</p>`), coordsConfig())
	if g != nil || from != "" {
		t.Errorf("no map: got %+v from %q", g, from)
	}
}

func TestProvince(t *testing.T) {
	cfg := config.ProvinceConfig{Selectors: []string{".prov"}, Regex: true}
	tests := []struct {
		html string
		text string
		want string
	}{
		{`<span class="prov">Mantova (MN)</span>`, "", "MN"},
		{`<span class="prov">Brescia</span>`, "Sermide (MN)", "Brescia"},
		{`<p>x</p>`, "Piazza Garibaldi, Sermide (MN)", "MN"},
		{`<p>x</p>`, "nessuna provincia (Mn)", ""},
	}
	for _, tt := range tests {
		if got := Province(mustDoc(t, tt.html), cfg, tt.text); got != tt.want {
			t.Errorf("Province(%q, %q) = %q; want %q", tt.html, tt.text, got, tt.want)
		}
	}
	cfg.Regex = false
	if got := Province(mustDoc(t, `<p>x</p>`), cfg, "Sermide (MN)"); got != "" {
		t.Errorf("regex disabled: got %q", got)
	}
}

func TestAttachCoordinates(t *testing.T) {
	geo := &models.GeoCoordinates{Latitude: 45, Longitude: 10}

	f := models.NewFestival("https://x.it/e", "sagritaly", ref)
	f.Title = "Sagra"
	f.StartDate = "2025-11-07"
	attachCoordinates(f, geo, "Piazza Grande")
	sd := f.StructuredData
	if sd == nil || sd.Type != "Event" || sd.Name != "Sagra" || sd.StartDate != "2025-11-07" {
		t.Fatalf("synthesised node: %+v", sd)
	}
	if !sd.Location.IsPlace() || sd.Location.Place.Name != "Piazza Grande" || sd.Location.Place.Geo != geo {
		t.Errorf("synthesised place: %+v", sd.Location)
	}

	// text location becomes a place named after it
	f.StructuredData = &models.EventData{Type: "Event", Location: models.TextLocation("Mantova")}
	attachCoordinates(f, geo, "ignored")
	if p := f.StructuredData.Location.Place; p == nil || p.Name != "Mantova" || p.Geo != geo {
		t.Errorf("text location: %+v", f.StructuredData.Location)
	}

	// coordinates already in JSON-LD are kept
	own := &models.GeoCoordinates{Latitude: 1, Longitude: 2}
	f.StructuredData = &models.EventData{Type: "Event", Location: models.PlaceLocation(&models.Place{Name: "P", Geo: own})}
	attachCoordinates(f, geo, "")
	if f.StructuredData.Location.Place.Geo != own {
		t.Error("JSON-LD coordinates were overwritten")
	}
}
