package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yml
var defaultSources []byte

// Source variants. They only document the site family; behaviour is driven
// entirely by the strategy fields below.
const (
	VariantListingDetail = "listing-detail"
	VariantPHPCalendar   = "php-calendar"
	VariantPortal        = "portal"
)

// Date strategies.
const (
	DateElement = "element" // dedicated date element(s)
	DateLabel   = "label"   // generic block whose text starts with a label
)

// Location strategies.
const (
	LocationText  = "text"
	LocationLabel = "label"
)

// Coordinate sources, tried in the order given by CoordinatesConfig.Priority.
const (
	CoordsMapLink = "maplink"
	CoordsIframe  = "iframe"
	CoordsData    = "data"
)

// DefaultCoordinatePriority: an inline map link wins over an embedded
// iframe, which wins over data attributes.
var DefaultCoordinatePriority = []string{CoordsMapLink, CoordsIframe, CoordsData}

// ListingConfig drives detail-link discovery.
type ListingConfig struct {
	StartURLs     []string `yaml:"start_urls"`
	MonthTemplate string   `yaml:"month_template"` // {month} and {year} are substituted
	MonthsAhead   int      `yaml:"months_ahead"`
	FeedURL       string   `yaml:"feed_url"`
	LinkSelector  string   `yaml:"link_selector"`
	LinkPattern   string   `yaml:"link_pattern"`
	NextSelector  string   `yaml:"next_selector"`
}

type DateConfig struct {
	Strategy  string   `yaml:"strategy"`
	Selectors []string `yaml:"selectors"`
	Labels    []string `yaml:"labels"`
}

type LocationConfig struct {
	Strategy  string   `yaml:"strategy"`
	Selectors []string `yaml:"selectors"`
	Labels    []string `yaml:"labels"`
}

type CoordinatesConfig struct {
	Priority        []string `yaml:"priority"`
	MapLinkSelector string   `yaml:"maplink_selector"`
	IframeSelector  string   `yaml:"iframe_selector"`
	DataSelector    string   `yaml:"data_selector"`
	LatAttr         string   `yaml:"lat_attr"`
	LngAttr         string   `yaml:"lng_attr"`
}

type ProvinceConfig struct {
	Selectors []string `yaml:"selectors"`
	Regex     bool     `yaml:"regex"`
}

type ParagraphConfig struct {
	Selectors []string `yaml:"selectors"`
	MinLength int      `yaml:"min_length"`
}

type ImageConfig struct {
	Selector string   `yaml:"selector"`
	Exclude  []string `yaml:"exclude"`
}

type ContactConfig struct {
	ExcludeDomains []string `yaml:"exclude_domains"`
	ExcludeSocial  bool     `yaml:"exclude_social"`
}

// SourceConfig is the declarative extraction recipe for one website.
type SourceConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Variant     string            `yaml:"variant"`
	BaseURL     string            `yaml:"base_url"`
	Domains     []string          `yaml:"domains"`
	Listing     ListingConfig     `yaml:"listing"`
	Title       []string          `yaml:"title"`
	Date        DateConfig        `yaml:"date"`
	Location    LocationConfig    `yaml:"location"`
	Coordinates CoordinatesConfig `yaml:"coordinates"`
	Province    ProvinceConfig    `yaml:"province"`
	Paragraphs  ParagraphConfig   `yaml:"paragraphs"`
	Images      ImageConfig       `yaml:"images"`
	Contacts    ContactConfig     `yaml:"contacts"`
	Categories  []string          `yaml:"categories"`
	Schedule    []string          `yaml:"schedule"`
	Prices      []string          `yaml:"prices"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources decodes the embedded source recipes, or the file at path when
// path is non-empty, and keeps only the ids listed in only (all when empty).
func LoadSources(path string, only []string) ([]SourceConfig, error) {
	raw := defaultSources
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sources: read %q: %w", path, err)
		}
		raw = b
	}
	return ParseSources(raw, only)
}

// ParseSources decodes and validates a YAML sources document.
func ParseSources(raw []byte, only []string) ([]SourceConfig, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("sources: parse yaml: %w", err)
	}

	var out []SourceConfig
	for _, sc := range f.Sources {
		if len(only) > 0 && !slices.Contains(only, sc.ID) {
			continue
		}
		sc.applyDefaults()
		if err := sc.validate(); err != nil {
			return nil, fmt.Errorf("sources: %s: %w", sc.ID, err)
		}
		out = append(out, sc)
	}
	if len(out) == 0 {
		return nil, errors.New("sources: no source selected")
	}
	return out, nil
}

// IDs returns the source identifiers, the closed set used by validation.
func IDs(sources []SourceConfig) []string {
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	return ids
}

func (s *SourceConfig) applyDefaults() {
	if len(s.Coordinates.Priority) == 0 {
		s.Coordinates.Priority = DefaultCoordinatePriority
	}
	if s.Coordinates.MapLinkSelector == "" {
		s.Coordinates.MapLinkSelector = `a[href*="maps.google"], a[href*="google.com/maps"], a[href*="goo.gl/maps"]`
	}
	if s.Coordinates.IframeSelector == "" {
		s.Coordinates.IframeSelector = `iframe[src*="maps"]`
	}
	if s.Coordinates.LatAttr == "" {
		s.Coordinates.LatAttr = "data-lat"
	}
	if s.Coordinates.LngAttr == "" {
		s.Coordinates.LngAttr = "data-lng"
	}
	if s.Paragraphs.MinLength <= 0 {
		s.Paragraphs.MinLength = 20
	}
	if len(s.Paragraphs.Selectors) == 0 {
		s.Paragraphs.Selectors = []string{"p"}
	}
	if s.Images.Selector == "" {
		s.Images.Selector = "img"
	}
	if len(s.Images.Exclude) == 0 {
		s.Images.Exclude = []string{"logo", "icon", "favicon"}
	}
	if s.Listing.LinkSelector == "" {
		s.Listing.LinkSelector = "a[href]"
	}
	if s.Date.Strategy == "" {
		s.Date.Strategy = DateElement
	}
	if s.Location.Strategy == "" {
		s.Location.Strategy = LocationText
	}
}

func (s *SourceConfig) validate() error {
	if s.ID == "" {
		return errors.New("missing id")
	}
	if s.BaseURL == "" {
		return errors.New("missing base_url")
	}
	if len(s.Listing.StartURLs) == 0 && s.Listing.MonthTemplate == "" && s.Listing.FeedURL == "" {
		return errors.New("listing needs start_urls, month_template or feed_url")
	}
	if s.Listing.LinkPattern != "" {
		if _, err := regexp.Compile(s.Listing.LinkPattern); err != nil {
			return fmt.Errorf("listing.link_pattern: %w", err)
		}
	}
	switch s.Date.Strategy {
	case DateElement, DateLabel:
	default:
		return fmt.Errorf("unknown date strategy %q", s.Date.Strategy)
	}
	switch s.Location.Strategy {
	case LocationText, LocationLabel:
	default:
		return fmt.Errorf("unknown location strategy %q", s.Location.Strategy)
	}
	for _, p := range s.Coordinates.Priority {
		switch p {
		case CoordsMapLink, CoordsIframe, CoordsData:
		default:
			return fmt.Errorf("unknown coordinate source %q", p)
		}
	}
	return nil
}
