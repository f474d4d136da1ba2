package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Festival is the candidate record a parser builds for one detail page.
// It is created fresh per page and either emitted or discarded.
type Festival struct {
	URL       string `json:"url" validate:"required,url"`
	Title     string `json:"title" validate:"required"`
	ScrapedAt string `json:"scrapedAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Source    string `json:"source" validate:"required,festivalsource"`

	StructuredData *EventData `json:"structuredData,omitempty"`
	Name           string     `json:"name,omitempty"`
	StartDate      string     `json:"startDate,omitempty"`
	EndDate        string     `json:"endDate,omitempty"`
	Location       *Location  `json:"location,omitempty"`
	Description    string     `json:"description,omitempty"`

	MetaDescription string `json:"metaDescription"`
	OgImage         string `json:"ogImage"`
	OgTitle         string `json:"ogTitle"`

	Dates      []string     `json:"dates" validate:"required"`
	Province   string       `json:"province"`
	Images     []Image      `json:"images" validate:"required,dive"`
	Paragraphs []string     `json:"paragraphs" validate:"required"`
	FullText   string       `json:"fullText"`
	Contacts   *Contacts    `json:"contacts,omitempty" validate:"omitempty"`
	Social     *SocialMedia `json:"socialMedia,omitempty"`
	Categories []string     `json:"categories" validate:"required"`
	Schedule   []string     `json:"schedule" validate:"required"`
	Prices     []string     `json:"prices" validate:"required"`
}

// NewFestival returns a candidate with every required collection initialised
// to an empty value.
func NewFestival(url, source string, scrapedAt time.Time) *Festival {
	return &Festival{
		URL:        url,
		Source:     source,
		ScrapedAt:  scrapedAt.UTC().Format(time.RFC3339),
		Dates:      []string{},
		Images:     []Image{},
		Paragraphs: []string{},
		Categories: []string{},
		Schedule:   []string{},
		Prices:     []string{},
	}
}

// ValidatedFestival is a Festival that passed schema validation.
type ValidatedFestival struct {
	Festival
}

// Coordinates returns the embedded coordinates of the record, looking at the
// promoted location first and the structured data second.
func (f *Festival) Coordinates() *GeoCoordinates {
	if g := f.Location.geo(); g != nil {
		return g
	}
	if f.StructuredData != nil {
		return f.StructuredData.Location.geo()
	}
	return nil
}

// Image is a picture found on the page.
type Image struct {
	Src string `json:"src" validate:"required"`
	Alt string `json:"alt"`
}

// Contacts groups the contact links found on the page.
type Contacts struct {
	Phones   []string `json:"phones" validate:"required"`
	Emails   []string `json:"emails" validate:"required"`
	Websites []string `json:"websites" validate:"required"`
}

// SocialMedia holds the first profile link per network, nil when absent.
type SocialMedia struct {
	Facebook  *string `json:"facebook"`
	Instagram *string `json:"instagram"`
	Twitter   *string `json:"twitter"`
}

// EventData is the structured (JSON-LD) event description. When a page has
// no JSON-LD but exposes map coordinates, one is synthesised so downstream
// geocoding can be skipped.
type EventData struct {
	Type        string    `json:"@type"`
	Name        string    `json:"name,omitempty"`
	StartDate   string    `json:"startDate,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// GeoCoordinates is a lat/lng pair.
type GeoCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is the structured form of a location.
type Place struct {
	Type    string          `json:"@type,omitempty"`
	Name    string          `json:"name,omitempty"`
	Address string          `json:"address,omitempty"`
	Geo     *GeoCoordinates `json:"geo,omitempty"`
}

// Location is either free text or a structured Place. The two shapes are
// kept apart on purpose and survive a JSON round trip unchanged.
type Location struct {
	Text  string
	Place *Place
}

// TextLocation builds a free-text location.
func TextLocation(s string) *Location { return &Location{Text: s} }

// PlaceLocation builds a structured location.
func PlaceLocation(p *Place) *Location { return &Location{Place: p} }

// IsPlace reports whether the location is structured.
func (l *Location) IsPlace() bool { return l != nil && l.Place != nil }

// DisplayName returns the place name for structured locations and the text
// otherwise.
func (l *Location) DisplayName() string {
	switch {
	case l == nil:
		return ""
	case l.Place != nil:
		return l.Place.Name
	default:
		return l.Text
	}
}

func (l *Location) geo() *GeoCoordinates {
	if l == nil || l.Place == nil {
		return nil
	}
	return l.Place.Geo
}

func (l Location) MarshalJSON() ([]byte, error) {
	if l.Place != nil {
		return json.Marshal(l.Place)
	}
	return json.Marshal(l.Text)
}

func (l *Location) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = Location{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Location{Text: s}
		return nil
	case b[0] == '{':
		var p Place
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*l = Location{Place: &p}
		return nil
	default:
		return fmt.Errorf("location: unsupported JSON value %s", string(b))
	}
}
