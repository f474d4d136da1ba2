package services

import (
	"context"
	"strings"
	"time"

	"festival-scraper/models"
	"festival-scraper/utils"
)

// Geocoder resolves a free-text place.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*models.GeoCoordinates, error)
}

// Uploader publishes a festival to the content store.
type Uploader interface {
	Upload(ctx context.Context, payload UploadPayload) error
}

// Enricher runs the post-emission collaborators. Their failures are logged
// and counted, never returned.
type Enricher struct {
	geocoder Geocoder
	uploader Uploader
	stats    *Stats
	logger   *utils.Logger
}

// NewEnricher creates an Enricher. geocoder may be nil.
func NewEnricher(geocoder Geocoder, uploader Uploader, stats *Stats, logger *utils.Logger) *Enricher {
	return &Enricher{geocoder: geocoder, uploader: uploader, stats: stats, logger: logger}
}

// Locate returns the embedded coordinates of f, or geocodes its location.
// nil means no coordinates.
func (e *Enricher) Locate(ctx context.Context, f *models.ValidatedFestival) *models.GeoCoordinates {
	if g := f.Coordinates(); g != nil {
		return g
	}
	if e.geocoder == nil {
		return nil
	}

	query := GeocodeQuery(&f.Festival)
	if query == "" {
		return nil
	}

	g, err := e.geocoder.Geocode(ctx, query)
	if err != nil {
		e.logger.Warn("[geocode] %s: %v", query, err)
	}
	e.stats.Geocode(g != nil)
	return g
}

// Publish locates and uploads f, reporting success.
func (e *Enricher) Publish(ctx context.Context, f *models.ValidatedFestival) bool {
	payload := BuildPayload(f, e.Locate(ctx, f), time.Now())
	if payload.Position == nil {
		e.logger.Debug("[upload] %s has no coordinates", f.URL)
	}

	if err := e.uploader.Upload(ctx, payload); err != nil {
		e.logger.Error("[upload] %s: %v", f.URL, err)
		e.stats.Upload(false)
		return false
	}
	e.stats.Upload(true)
	e.logger.Debug("[upload] %s uploaded as %s", f.URL, payload.Slug)
	return true
}

// GeocodeQuery builds the free-text geocoding query of a festival.
func GeocodeQuery(f *models.Festival) string {
	place := strings.TrimSpace(f.Location.DisplayName())
	if place == "" {
		return ""
	}
	parts := []string{place}
	if f.Province != "" {
		parts = append(parts, f.Province)
	}
	parts = append(parts, "Italia")
	return strings.Join(parts, ", ")
}
