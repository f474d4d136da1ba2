package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"festival-scraper/models"
)

// NominatimGeocoder resolves free-text places through a Nominatim-compatible
// search API. Every call is bounded by timeout.
type NominatimGeocoder struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// NewNominatimGeocoder creates a geocoder. A zero timeout means 3 seconds.
func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration) *NominatimGeocoder {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &NominatimGeocoder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the coordinates of the best match, or nil when nothing
// matched.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (*models.GeoCoordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "it")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode %q: status %d", query, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return nil, fmt.Errorf("geocode %q: bad coordinates %q,%q", query, results[0].Lat, results[0].Lon)
	}
	return &models.GeoCoordinates{Latitude: lat, Longitude: lng}, nil
}
