package festival

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"festival-scraper/models"
	"festival-scraper/scraper"
	"festival-scraper/services"
	"festival-scraper/storage"
	"festival-scraper/utils"
)

// Crawl route labels.
const (
	LabelListing = "LISTING"
	LabelDetail  = "DETAIL"
)

// Handler connects the parsers to the crawler and runs the acceptance
// pipeline for every detail page: parse (with the temporal check), duplicate
// check, validation, sink emission, then enrichment.
type Handler struct {
	parsers         map[string]*Parser
	detector        *services.Detector
	validator       *services.Validator
	sink            storage.Sink
	enricher        *services.Enricher
	stats           *services.Stats
	feeds           *scraper.FeedReader
	logger          *utils.Logger
	maxListingPages int

	mu       sync.Mutex
	accepted []*models.ValidatedFestival
}

// HandlerConfig groups the Handler collaborators. Enricher and Feeds may be
// nil.
type HandlerConfig struct {
	Parsers         []*Parser
	Detector        *services.Detector
	Validator       *services.Validator
	Sink            storage.Sink
	Enricher        *services.Enricher
	Stats           *services.Stats
	Feeds           *scraper.FeedReader
	Logger          *utils.Logger
	MaxListingPages int
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		parsers:         make(map[string]*Parser, len(cfg.Parsers)),
		detector:        cfg.Detector,
		validator:       cfg.Validator,
		sink:            cfg.Sink,
		enricher:        cfg.Enricher,
		stats:           cfg.Stats,
		feeds:           cfg.Feeds,
		logger:          cfg.Logger,
		maxListingPages: cfg.MaxListingPages,
	}
	for _, p := range cfg.Parsers {
		h.parsers[p.src.ID] = p
	}
	return h
}

// Register installs the routes and the failure hook on c.
func (h *Handler) Register(c *scraper.Crawler) {
	c.Handle(LabelListing, h.handleListing)
	c.Handle(LabelDetail, h.handleDetail)
	c.OnFailure(h.onFailure)
}

// Seeds returns the initial requests of every source: its listing pages and
// the items of its feed, if it has one.
func (h *Handler) Seeds(ctx context.Context, now time.Time) []scraper.Request {
	var seeds []scraper.Request
	for id, p := range h.parsers {
		for _, u := range p.StartURLs(now) {
			seeds = append(seeds, scraper.Request{URL: u, Label: LabelListing, Source: id})
		}
		feedURL := p.src.Listing.FeedURL
		if feedURL == "" || h.feeds == nil {
			continue
		}
		links, err := h.feeds.Links(ctx, feedURL)
		if err != nil {
			h.logger.Warn("[pipeline] %s feed unavailable: %v", id, err)
			continue
		}
		h.logger.Info("[pipeline] %s feed listed %d event(s)", id, len(links))
		for _, u := range links {
			seeds = append(seeds, scraper.Request{URL: u, Label: LabelDetail, Source: id, Depth: 1})
		}
	}
	return seeds
}

func (h *Handler) parser(source string) (*Parser, error) {
	p, ok := h.parsers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	return p, nil
}

func (h *Handler) handleListing(ctx context.Context, page *scraper.Page) error {
	p, err := h.parser(page.Request.Source)
	if err != nil {
		return err
	}

	links := p.DetailLinks(page.Doc, page.URL)
	for _, link := range links {
		page.Enqueue(scraper.Request{URL: link, Label: LabelDetail})
	}

	next := p.NextPage(page.Doc, page.URL)
	if next != "" && (h.maxListingPages <= 0 || page.Request.Depth+1 < h.maxListingPages) {
		page.Enqueue(scraper.Request{URL: next, Label: LabelListing, Depth: page.Request.Depth + 1})
	}

	h.logger.Info("[pipeline] %s listing %s: %d detail link(s)", p.src.ID, page.URL, len(links))
	h.stats.Page(p.src.ID, services.OutcomeListing)
	return nil
}

func (h *Handler) handleDetail(ctx context.Context, page *scraper.Page) error {
	p, err := h.parser(page.Request.Source)
	if err != nil {
		return err
	}
	if len(page.RedirectChain) > 0 {
		h.logger.Debug("[pipeline] %s redirected via %v", page.Request.URL, page.RedirectChain)
	}

	f, err := p.Parse(page.Doc, page.URL)
	switch {
	case errors.Is(err, ErrEmptyTitle):
		h.logger.Warn("[pipeline] %s: no title found, skipping", page.URL)
		h.stats.Page(p.src.ID, services.OutcomeEmptyTitle)
		return nil
	case errors.Is(err, ErrPastEvent):
		h.logger.Debug("[pipeline] %s: past event, skipping", page.URL)
		h.stats.Page(p.src.ID, services.OutcomePast)
		return nil
	case err != nil:
		return err
	}

	if _, err := h.Accept(ctx, f); err != nil && !errors.Is(err, services.ErrDuplicate) {
		return err
	}
	return nil
}

// Accept runs a parsed candidate through duplicate detection, validation,
// emission and enrichment. A repeat returns services.ErrDuplicate, a
// rejected record a *services.ValidationError. The duplicate key stays
// remembered only once the record is emitted.
func (h *Handler) Accept(ctx context.Context, f *models.Festival) (*models.ValidatedFestival, error) {
	if h.detector.IsDuplicate(f) {
		h.logger.Debug("[pipeline] %s: duplicate of %q", f.URL, services.DuplicateKey(f))
		h.stats.Page(f.Source, services.OutcomeDuplicate)
		return nil, services.ErrDuplicate
	}

	vf, err := h.validator.Validate(f)
	if err != nil {
		h.detector.Forget(f)
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			h.logger.Error("[pipeline] %s rejected, invalid fields: %v", f.URL, verr.Fields())
			h.stats.Page(f.Source, services.OutcomeInvalid)
		}
		return nil, err
	}

	if err := h.sink.Emit(ctx, vf); err != nil {
		h.detector.Forget(f)
		return nil, fmt.Errorf("emit %s: %w", f.URL, err)
	}
	h.stats.Page(f.Source, services.OutcomeEmitted)
	h.logger.Info("[pipeline] Accepted %q (%s %s..%s)", vf.Title, vf.Source, vf.StartDate, vf.EndDate)

	h.mu.Lock()
	h.accepted = append(h.accepted, vf)
	h.mu.Unlock()

	if h.enricher != nil {
		h.enricher.Publish(ctx, vf)
	}
	return vf, nil
}

// Accepted returns the festivals emitted so far.
func (h *Handler) Accepted() []*models.ValidatedFestival {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*models.ValidatedFestival(nil), h.accepted...)
}

func (h *Handler) onFailure(req scraper.Request, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		// counted and logged by Accept
		return
	}
	h.logger.Error("[pipeline] %s %s failed: %v", req.Label, req.URL, err)
	h.stats.Page(req.Source, services.OutcomeFailed)
}
