package services

import (
	"regexp"
	"strings"
	"time"

	"festival-scraper/models"
)

var blankLineRegexp = regexp.MustCompile(`\n\s*\n`)

// UploadPayload is the content-store representation of a festival.
type UploadPayload struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	StartDate   string          `json:"startDate,omitempty"`
	EndDate     string          `json:"endDate,omitempty"`
	Description []RichTextBlock `json:"description"`
	Position    *Position       `json:"position,omitempty"`
	Province    string          `json:"province,omitempty"`
	Source      string          `json:"source"`
	SourceURL   string          `json:"sourceUrl"`
}

// RichTextBlock is one paragraph block of the rich-text description.
type RichTextBlock struct {
	Type     string         `json:"type"`
	Children []RichTextNode `json:"children"`
}

type RichTextNode struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BuildPayload converts a validated festival into an upload payload.
// pos may be nil when no coordinates are known.
func BuildPayload(f *models.ValidatedFestival, pos *models.GeoCoordinates, now time.Time) UploadPayload {
	p := UploadPayload{
		Title:       f.Title,
		Slug:        Slugify(f.Title),
		Description: RichText(descriptionText(&f.Festival)),
		Province:    f.Province,
		Source:      f.Source,
		SourceURL:   f.URL,
	}
	p.StartDate, p.EndDate = isoRange(&f.Festival, now)
	if pos != nil {
		p.Position = &Position{Lat: pos.Latitude, Lng: pos.Longitude}
	}
	return p
}

// RichText splits text on blank lines into paragraph blocks.
func RichText(text string) []RichTextBlock {
	blocks := []RichTextBlock{}
	for _, part := range blankLineRegexp.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blocks = append(blocks, RichTextBlock{
			Type:     "paragraph",
			Children: []RichTextNode{{Type: "text", Text: part}},
		})
	}
	return blocks
}

func descriptionText(f *models.Festival) string {
	if strings.TrimSpace(f.Description) != "" {
		return f.Description
	}
	return strings.Join(f.Paragraphs, "\n\n")
}

// isoRange returns normalised start/end dates, falling back to the first
// raw fragment that parses as a range.
func isoRange(f *models.Festival, now time.Time) (string, string) {
	var start, end string
	if d, ok := ParseISODate(f.StartDate); ok {
		start = d.String()
	}
	if d, ok := ParseISODate(f.EndDate); ok {
		end = d.String()
	}
	if start != "" {
		if end == "" {
			end = start
		}
		return start, end
	}
	for _, fragment := range f.Dates {
		if r, ok := ParseDateRange(fragment, now); ok {
			return r.Start.String(), r.End.String()
		}
	}
	return "", end
}
