package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"festival-scraper/models"
)

// Page outcomes counted by Stats.
const (
	OutcomeEmitted    = "emitted"
	OutcomePast       = "past"
	OutcomeDuplicate  = "duplicate"
	OutcomeInvalid    = "invalid"
	OutcomeEmptyTitle = "empty_title"
	OutcomeFailed     = "failed"
	OutcomeListing    = "listing"
)

// Stats collects the run summary. Every counter is mirrored into a private
// Prometheus registry so a run can be pushed to a Pushgateway.
type Stats struct {
	mu      sync.Mutex
	summary models.RunSummary

	registry *prometheus.Registry
	pages    *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	geocodes *prometheus.CounterVec
}

// NewStats creates the counters for one run.
func NewStats(runID string) *Stats {
	s := &Stats{
		summary:  models.RunSummary{RunID: runID},
		registry: prometheus.NewRegistry(),
	}
	s.pages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festival_scraper",
		Name:      "pages_total",
		Help:      "Pages processed by source and outcome",
	}, []string{"source", "outcome"})
	s.uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festival_scraper",
		Name:      "uploads_total",
		Help:      "Festival uploads by status",
	}, []string{"status"})
	s.geocodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "festival_scraper",
		Name:      "geocode_lookups_total",
		Help:      "Geocoding lookups by result",
	}, []string{"result"})
	s.registry.MustRegister(s.pages, s.uploads, s.geocodes)
	return s
}

// Page records the outcome of one fetched page.
func (s *Stats) Page(source, outcome string) {
	s.mu.Lock()
	switch outcome {
	case OutcomeEmitted:
		s.summary.PagesScraped++
		s.summary.Emitted++
	case OutcomePast:
		s.summary.PagesScraped++
		s.summary.SkippedPast++
	case OutcomeDuplicate:
		s.summary.PagesScraped++
		s.summary.SkippedDuplicate++
	case OutcomeInvalid:
		s.summary.PagesScraped++
		s.summary.FailedValidation++
	case OutcomeEmptyTitle:
		s.summary.PagesScraped++
		s.summary.EmptyTitle++
	case OutcomeListing:
		s.summary.PagesScraped++
	default:
		s.summary.PagesFailed++
	}
	s.mu.Unlock()
	s.pages.WithLabelValues(source, outcome).Inc()
}

// Upload records the result of one upload.
func (s *Stats) Upload(ok bool) {
	s.mu.Lock()
	if ok {
		s.summary.UploadSuccesses++
	} else {
		s.summary.UploadFailures++
	}
	s.mu.Unlock()
	s.uploads.WithLabelValues(status(ok, "success", "failure")).Inc()
}

// Geocode records whether a lookup returned coordinates.
func (s *Stats) Geocode(hit bool) {
	s.mu.Lock()
	if hit {
		s.summary.GeocodeHits++
	} else {
		s.summary.GeocodeMisses++
	}
	s.mu.Unlock()
	s.geocodes.WithLabelValues(status(hit, "hit", "miss")).Inc()
}

// Summary returns a snapshot of the counters.
func (s *Stats) Summary() models.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Registry exposes the run's metrics.
func (s *Stats) Registry() *prometheus.Registry { return s.registry }

// Push sends the run's metrics to a Pushgateway, grouped by run id.
func (s *Stats) Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Gatherer(s.registry).
		Grouping("run_id", s.Summary().RunID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

func status(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
