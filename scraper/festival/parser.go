// Package festival turns fetched event pages into festival records. One
// Parser, driven by a config.SourceConfig, serves every source website.
package festival

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/config"
	"festival-scraper/models"
	"festival-scraper/scraper/extract"
	"festival-scraper/services"
	"festival-scraper/utils"
)

var (
	// ErrEmptyTitle aborts a page without a recognisable title.
	ErrEmptyTitle = errors.New("empty title")
	// ErrPastEvent aborts a page describing an event that already ended.
	ErrPastEvent = errors.New("event already ended")
)

// Parser extracts festival records for one source.
type Parser struct {
	src            config.SourceConfig
	logger         *utils.Logger
	now            func() time.Time
	contactExclude []string
	linkPattern    *regexp.Regexp
}

// NewParser creates the parser for src.
func NewParser(src config.SourceConfig, logger *utils.Logger) *Parser {
	exclude := append([]string{}, src.Domains...)
	exclude = append(exclude, src.Contacts.ExcludeDomains...)
	if src.Contacts.ExcludeSocial {
		exclude = append(exclude, extract.SocialDomains...)
	}
	p := &Parser{
		src:            src,
		logger:         logger.With("source", src.ID),
		now:            time.Now,
		contactExclude: exclude,
	}
	if src.Listing.LinkPattern != "" {
		re, err := regexp.Compile(src.Listing.LinkPattern)
		if err != nil {
			p.logger.Warn("[parser] ignoring link pattern: %v", err)
		}
		p.linkPattern = re
	}
	return p
}

// WithClock replaces the time source. Used by tests.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Source returns the configuration the parser runs with.
func (p *Parser) Source() config.SourceConfig { return p.src }

// Parse builds the candidate record of one detail page. It returns
// ErrEmptyTitle or ErrPastEvent when the page must be skipped; any other
// extraction problem only leaves the affected fields empty.
func (p *Parser) Parse(doc *goquery.Document, pageURL string) (*models.Festival, error) {
	now := p.now()
	f := models.NewFestival(pageURL, p.src.ID, now)

	f.Title = extract.Title(doc, p.src.Title)
	if f.Title == "" {
		return nil, ErrEmptyTitle
	}

	// JSON-LD wins; HTML only fills what it omits.
	if sd := p.structuredData(doc, pageURL); sd != nil {
		f.StructuredData = sd
		f.Name = sd.Name
		f.StartDate = sd.StartDate
		f.EndDate = sd.EndDate
		f.Description = sd.Description
		f.Location = sd.Location
	}

	f.Dates = p.rawDates(doc)
	normalizeDates(f, now)

	if services.IsPast(f, now) {
		return nil, ErrPastEvent
	}

	fullText := extract.FullText(doc)
	placeText := p.locationText(doc)
	if f.Location == nil && placeText != "" {
		f.Location = models.TextLocation(placeText)
	}
	if geo, from := MapCoordinates(doc, p.src.Coordinates); geo != nil {
		p.logger.Debug("[parser] %s: coordinates %.5f,%.5f from %s", pageURL, geo.Latitude, geo.Longitude, from)
		name := placeText
		if name == "" {
			name = f.Location.DisplayName()
		}
		attachCoordinates(f, geo, name)
	}
	f.Province = Province(doc, p.src.Province, fullText)

	meta := extract.MetaTags(doc)
	f.MetaDescription = meta.Description
	f.OgImage = meta.OgImage
	f.OgTitle = meta.OgTitle
	f.Images = extract.Images(doc, p.src.Images.Selector, p.src.Images.Exclude, pageURL)
	f.Paragraphs = extract.Paragraphs(doc, p.src.Paragraphs.Selectors, p.src.Paragraphs.MinLength)
	f.Contacts = extract.Contacts(doc, p.contactExclude)
	f.Social = extract.SocialMedia(doc)
	f.Categories = extract.List(doc, p.src.Categories)
	f.Schedule = extract.List(doc, p.src.Schedule)
	f.Prices = extract.List(doc, p.src.Prices)
	f.FullText = fullText
	if f.Description == "" && len(f.Paragraphs) > 0 {
		f.Description = strings.Join(f.Paragraphs, "\n\n")
	}

	return f, nil
}

// structuredData returns the first usable Event node of the page. Broken
// blocks are logged and skipped.
func (p *Parser) structuredData(doc *goquery.Document, pageURL string) *models.EventData {
	for _, raw := range extract.JSONLDBlocks(doc) {
		ev, err := DecodeEvent(raw)
		switch {
		case err == nil:
			return ev
		case errors.Is(err, ErrNoEvent):
			continue
		default:
			p.logger.Warn("[parser] %s: ignoring JSON-LD: %v", pageURL, err)
		}
	}
	return nil
}

func (p *Parser) rawDates(doc *goquery.Document) []string {
	switch p.src.Date.Strategy {
	case config.DateLabel:
		if v := extract.Labeled(doc, p.src.Date.Selectors, p.src.Date.Labels); v != "" {
			return []string{v}
		}
		return []string{}
	default:
		return extract.List(doc, p.src.Date.Selectors)
	}
}

func (p *Parser) locationText(doc *goquery.Document) string {
	switch p.src.Location.Strategy {
	case config.LocationLabel:
		return extract.Labeled(doc, p.src.Location.Selectors, p.src.Location.Labels)
	default:
		return extract.First(doc, p.src.Location.Selectors...)
	}
}

// normalizeDates fills startDate and endDate from the raw fragments when
// structured data did not provide them: the earliest start and the latest
// end over every fragment that parses.
func normalizeDates(f *models.Festival, now time.Time) {
	if f.StartDate != "" && f.EndDate != "" {
		return
	}
	var start, end services.CalendarDate
	for _, fragment := range f.Dates {
		r, ok := services.ParseDateRange(fragment, now)
		if !ok {
			continue
		}
		if start.IsZero() || r.Start.Before(start) {
			start = r.Start
		}
		if end.IsZero() || end.Before(r.End) {
			end = r.End
		}
	}
	if start.IsZero() {
		return
	}
	if f.StartDate == "" {
		f.StartDate = start.String()
	}
	if f.EndDate == "" {
		f.EndDate = end.String()
	}
}
