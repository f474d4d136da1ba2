package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLocationKeepsTextShape(t *testing.T) {
	b, err := json.Marshal(TextLocation("Piazza Grande, Modena"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"Piazza Grande, Modena"` {
		t.Errorf("text location marshalled as %s", b)
	}

	var l Location
	if err := json.Unmarshal(b, &l); err != nil {
		t.Fatal(err)
	}
	if l.IsPlace() || l.Text != "Piazza Grande, Modena" {
		t.Errorf("round trip lost text shape: %+v", l)
	}
}

func TestLocationKeepsPlaceShape(t *testing.T) {
	in := `{"@type":"Place","name":"Parco Ducale","address":"Parma","geo":{"latitude":44.8,"longitude":10.32}}`

	var l Location
	if err := json.Unmarshal([]byte(in), &l); err != nil {
		t.Fatal(err)
	}
	if !l.IsPlace() {
		t.Fatal("expected structured place")
	}
	if l.DisplayName() != "Parco Ducale" {
		t.Errorf("DisplayName: got %q", l.DisplayName())
	}
	if l.Place.Geo == nil || l.Place.Geo.Latitude != 44.8 {
		t.Errorf("geo lost: %+v", l.Place.Geo)
	}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "{") {
		t.Errorf("place marshalled as %s", out)
	}
}

func TestLocationRejectsNumbers(t *testing.T) {
	var l Location
	if err := json.Unmarshal([]byte(`42`), &l); err == nil {
		t.Error("expected error for numeric location")
	}
}

func TestNewFestivalDefaults(t *testing.T) {
	f := NewFestival("https://example.it/sagra", "sagritaly", time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC))

	if f.ScrapedAt != "2025-11-01T10:00:00Z" {
		t.Errorf("ScrapedAt: got %q", f.ScrapedAt)
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"dates":[]`, `"images":[]`, `"paragraphs":[]`, `"prices":[]`, `"province":""`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("marshalled record missing %s: %s", want, b)
		}
	}
	for _, absent := range []string{`"contacts"`, `"socialMedia"`, `"structuredData"`, `"location"`} {
		if strings.Contains(string(b), absent) {
			t.Errorf("optional field %s should be omitted: %s", absent, b)
		}
	}
}

func TestCoordinatesFallsBackToStructuredData(t *testing.T) {
	f := NewFestival("https://example.it/a", "sagritaly", time.Now())
	f.Location = TextLocation("Cremona")
	f.StructuredData = &EventData{
		Type:     "Event",
		Location: PlaceLocation(&Place{Name: "Cremona", Geo: &GeoCoordinates{Latitude: 45.13, Longitude: 10.02}}),
	}

	g := f.Coordinates()
	if g == nil || g.Longitude != 10.02 {
		t.Errorf("Coordinates: got %+v", g)
	}
}
