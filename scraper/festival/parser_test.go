package festival

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"festival-scraper/config"
	"festival-scraper/services"
	"festival-scraper/utils"
)

var ref = time.Date(2025, time.October, 20, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return ref }

func testParser(t *testing.T, id string) *Parser {
	t.Helper()
	srcs, err := config.LoadSources("", []string{id})
	if err != nil {
		t.Fatalf("LoadSources(%s): %v", id, err)
	}
	return NewParser(srcs[0], utils.NewNopLogger()).WithClock(fixedClock)
}

const tortelloPage = `<html><head><title>Sagra del Tortello | Sagritaly</title>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"FoodEvent","name":"Sagra del Tortello","startDate":"2025-11-07","endDate":"2025-11-09"}</script>
</head><body><h1>Sagra del Tortello</h1></body></html>`

func TestParseFoodEvent(t *testing.T) {
	p := testParser(t, "sagritaly")
	const pageURL = "https://www.sagritaly.com/evento/sagra-del-tortello/"

	f, err := p.Parse(mustDoc(t, tortelloPage), pageURL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Source != "sagritaly" || f.URL != pageURL || f.Title != "Sagra del Tortello" {
		t.Errorf("identity: %q %q %q", f.Source, f.URL, f.Title)
	}
	if f.StartDate != "2025-11-07" || f.EndDate != "2025-11-09" {
		t.Errorf("dates: %q..%q", f.StartDate, f.EndDate)
	}
	if f.StructuredData == nil || f.StructuredData.Type != "FoodEvent" || f.Name != "Sagra del Tortello" {
		t.Errorf("structured data: %+v", f.StructuredData)
	}
	if f.ScrapedAt != "2025-10-20T09:00:00Z" {
		t.Errorf("scrapedAt = %q", f.ScrapedAt)
	}
	if f.Dates == nil || f.Images == nil || f.Categories == nil {
		t.Error("collections must be initialised")
	}

	if _, err := services.NewValidator([]string{"sagritaly"}).Validate(f); err != nil {
		t.Errorf("record should validate: %v", err)
	}
}

const zuccaPage = `<html><head>
<title>Sagra della Zucca - Sagre in Lombardia</title>
<meta name="description" content="La sagra della zucca di Sermide">
<meta property="og:image" content="https://www.sagreinlombardia.it/img/zucca.jpg">
</head><body>
<h1 class="entry-title">Sagra della Zucca</h1>
<div class="evento-data">7-8-14-15 Novembre 2025</div>
<div class="evento-luogo">Piazza Garibaldi, Sermide (MN)</div>
<a href="https://maps.google.com/?q=45.0055,11.2931">Mappa</a>
<div class="entry-content">
  <p>Tre giorni di stand gastronomici con zucca, tortelli e musica dal vivo.</p>
  <p>Breve.</p>
  <img src="/img/stand.jpg" alt="Stand">
  <img src="/img/logo.png" alt="logo">
</div>
<ul class="programma"><li>Venerdì: apertura stand</li><li>Sabato: concerto</li></ul>
<span class="cat-links"><a href="/c/gastronomia/">Gastronomia</a></span>
<a href="https://www.facebook.com/prolocosermide">Facebook</a>
<a href="https://www.prolocosermide.it">Sito Pro Loco</a>
<a href="https://www.sagreinlombardia.it/altre/">Altre sagre</a>
<a href="mailto:info@prolocosermide.it?subject=Sagra">Scrivici</a>
</body></html>`

func TestParseHTMLOnly(t *testing.T) {
	p := testParser(t, "sagreinlombardia")
	f, err := p.Parse(mustDoc(t, zuccaPage), "https://www.sagreinlombardia.it/sagre/sagra-della-zucca/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.StartDate != "2025-11-07" || f.EndDate != "2025-11-15" {
		t.Errorf("normalised dates: %q..%q", f.StartDate, f.EndDate)
	}
	if !reflect.DeepEqual(f.Dates, []string{"7-8-14-15 Novembre 2025"}) {
		t.Errorf("raw dates: %v", f.Dates)
	}
	if f.Location == nil || f.Location.IsPlace() || f.Location.Text != "Piazza Garibaldi, Sermide (MN)" {
		t.Errorf("location: %+v", f.Location)
	}
	if f.Province != "MN" {
		t.Errorf("province = %q", f.Province)
	}

	sd := f.StructuredData
	if sd == nil || sd.Type != "Event" || sd.Name != "Sagra della Zucca" || sd.StartDate != "2025-11-07" {
		t.Fatalf("synthesised structured data: %+v", sd)
	}
	if g := f.Coordinates(); g == nil || g.Latitude != 45.0055 || g.Longitude != 11.2931 {
		t.Errorf("coordinates: %+v", g)
	}
	if sd.Location.Place.Name != "Piazza Garibaldi, Sermide (MN)" {
		t.Errorf("place name = %q", sd.Location.Place.Name)
	}

	if !reflect.DeepEqual(f.Paragraphs, []string{"Tre giorni di stand gastronomici con zucca, tortelli e musica dal vivo."}) {
		t.Errorf("paragraphs: %v", f.Paragraphs)
	}
	if f.Description != f.Paragraphs[0] {
		t.Errorf("description should fall back to paragraphs, got %q", f.Description)
	}
	if len(f.Images) != 1 || f.Images[0].Src != "https://www.sagreinlombardia.it/img/stand.jpg" {
		t.Errorf("images: %+v", f.Images)
	}
	if !reflect.DeepEqual(f.Schedule, []string{"Venerdì: apertura stand", "Sabato: concerto"}) {
		t.Errorf("schedule: %v", f.Schedule)
	}
	if !reflect.DeepEqual(f.Categories, []string{"Gastronomia"}) {
		t.Errorf("categories: %v", f.Categories)
	}
	if f.MetaDescription != "La sagra della zucca di Sermide" || f.OgImage == "" {
		t.Errorf("meta: %q %q", f.MetaDescription, f.OgImage)
	}

	if f.Contacts == nil {
		t.Fatal("contacts missing")
	}
	if !reflect.DeepEqual(f.Contacts.Emails, []string{"info@prolocosermide.it"}) {
		t.Errorf("emails: %v", f.Contacts.Emails)
	}
	var proLoco bool
	for _, w := range f.Contacts.Websites {
		switch w {
		case "https://www.prolocosermide.it":
			proLoco = true
		case "https://www.facebook.com/prolocosermide", "https://www.sagreinlombardia.it/altre/":
			t.Errorf("excluded website kept: %s", w)
		}
	}
	if !proLoco {
		t.Errorf("websites: %v", f.Contacts.Websites)
	}
	if f.Social == nil || f.Social.Facebook == nil || *f.Social.Facebook != "https://www.facebook.com/prolocosermide" {
		t.Errorf("social: %+v", f.Social)
	}
}

func TestParseLabelStrategy(t *testing.T) {
	p := testParser(t, "eventiesagre")
	page := `<html><body>
<h1 class="titolo-evento">Festa della Castagna</h1>
<table>
  <tr><td>Quando:</td><td>31 Ottobre 1-2 Novembre 2025</td></tr>
  <tr><td>Dove: Bienno (BS)</td></tr>
</table>
<a href="https://maps.google.com/?q=46.1,10.1">mappa</a>
<iframe src="https://www.google.com/maps/embed/v1/place?key=k&q=45.9367,10.2952"></iframe>
<div class="descrizione">Castagne arrosto, vin brulè e mercatino dell'artigianato nel borgo.</div>
</body></html>`

	f, err := p.Parse(mustDoc(t, page), "https://www.eventiesagre.it/dettaglio.php?id=42")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(f.Dates, []string{"31 Ottobre 1-2 Novembre 2025"}) {
		t.Errorf("raw dates: %v", f.Dates)
	}
	if f.StartDate != "2025-10-31" || f.EndDate != "2025-11-02" {
		t.Errorf("dates: %q..%q", f.StartDate, f.EndDate)
	}
	if f.Location.DisplayName() != "Bienno (BS)" || f.Province != "BS" {
		t.Errorf("location %q, province %q", f.Location.DisplayName(), f.Province)
	}
	// iframe comes first for this source
	if g := f.Coordinates(); g == nil || g.Latitude != 45.9367 {
		t.Errorf("coordinates: %+v", g)
	}
	if len(f.Paragraphs) != 1 {
		t.Errorf("paragraphs: %v", f.Paragraphs)
	}
}

func TestParseSkips(t *testing.T) {
	p := testParser(t, "eventiesagre")
	tests := []struct {
		name string
		page string
		want error
	}{
		{"no title", `<html><body><p>Nessun titolo qui</p></body></html>`, ErrEmptyTitle},
		{"ended", `<html><body><h1>Sagra di Marzo</h1><p>Quando: 1-2 Marzo 2025</p></body></html>`, ErrPastEvent},
		{"ended per JSON-LD", `<html><head><script type="application/ld+json">{"@type":"Event","name":"Vecchia","startDate":"2024-06-01","endDate":"2024-06-02"}</script></head>
<body><h1>Vecchia</h1></body></html>`, ErrPastEvent},
	}
	for _, tt := range tests {
		f, err := p.Parse(mustDoc(t, tt.page), "https://www.eventiesagre.it/dettaglio.php?id=1")
		if !errors.Is(err, tt.want) || f != nil {
			t.Errorf("%s: got %v, %v; want %v", tt.name, f, err, tt.want)
		}
	}
}

func TestParseKeepsUndatedEvents(t *testing.T) {
	p := testParser(t, "eventiesagre")
	f, err := p.Parse(mustDoc(t, `<html><body><h1>Sagra</h1><p>Quando: date da definire</p></body></html>`), "https://www.eventiesagre.it/dettaglio.php?id=2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.StartDate != "" || f.EndDate != "" {
		t.Errorf("dates should stay empty: %q..%q", f.StartDate, f.EndDate)
	}
}

func TestParseBrokenJSONLDFallsBackToHTML(t *testing.T) {
	p := testParser(t, "sagritaly")
	page := `<html><head><script type="application/ld+json">{"@type":"Event","name":42}</script></head>
<body><h1>Festa</h1><div class="event-date">12 Dicembre 2025</div></body></html>`

	f, err := p.Parse(mustDoc(t, page), "https://www.sagritaly.com/evento/festa/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.StructuredData != nil || f.Name != "" {
		t.Errorf("broken JSON-LD should be ignored: %+v", f.StructuredData)
	}
	if f.StartDate != "2025-12-12" || f.EndDate != "2025-12-12" {
		t.Errorf("dates: %q..%q", f.StartDate, f.EndDate)
	}
}

func TestParseKeepsJSONLDCoordinates(t *testing.T) {
	p := testParser(t, "sagritaly")
	page := `<html><head><script type="application/ld+json">{"@type":"Event","name":"Festa",
"startDate":"2025-11-20","location":{"@type":"Place","name":"Piazza Sordello","geo":{"latitude":45.16,"longitude":10.79}}}</script></head>
<body><h1>Festa</h1><div id="event-map" data-lat="41.9" data-lng="12.5"></div></body></html>`

	f, err := p.Parse(mustDoc(t, page), "https://www.sagritaly.com/evento/festa/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g := f.Coordinates(); g == nil || g.Latitude != 45.16 || g.Longitude != 10.79 {
		t.Errorf("JSON-LD coordinates replaced: %+v", g)
	}
	if f.Location == nil || !f.Location.IsPlace() || f.Location.Place.Name != "Piazza Sordello" {
		t.Errorf("location: %+v", f.Location)
	}
	// no date fragments on the page, endDate stays empty
	if f.StartDate != "2025-11-20" || f.EndDate != "" {
		t.Errorf("dates: %q..%q", f.StartDate, f.EndDate)
	}
}
