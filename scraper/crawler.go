// Package scraper is the crawl engine: it fetches pages through a pluggable
// Fetcher, parses them into goquery documents and dispatches them to the
// handler registered for the request label.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/utils"
)

// Request is one URL to crawl, tagged with the route that handles it.
type Request struct {
	URL    string
	Label  string
	Source string
	Depth  int
}

// Page is a fetched, parsed document handed to a handler.
type Page struct {
	// URL is the final URL after redirects.
	URL           string
	RedirectChain []string
	Doc           *goquery.Document
	Request       Request

	crawler *Crawler
	ctx     context.Context
}

// Enqueue schedules follow-up requests. Depth is derived from the current
// page when left at zero.
func (p *Page) Enqueue(reqs ...Request) {
	for _, r := range reqs {
		if r.Depth == 0 {
			r.Depth = p.Request.Depth + 1
		}
		if r.Source == "" {
			r.Source = p.Request.Source
		}
		p.crawler.Enqueue(p.ctx, r)
	}
}

// HandlerFunc processes one page. A returned error is logged and counted
// for that page only.
type HandlerFunc func(ctx context.Context, page *Page) error

// Response is what a Fetcher returns for one URL.
type Response struct {
	URL           string
	RedirectChain []string
	StatusCode    int
	Body          []byte
}

// Fetcher downloads one URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Options tunes the crawler.
type Options struct {
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	RetryDelay     time.Duration
	MaxDepth       int
}

// Crawler runs requests through a bounded worker pool.
type Crawler struct {
	fetcher  Fetcher
	pool     *utils.WorkerPool
	retry    *utils.RetryConfig
	visited  *utils.KeySet
	logger   *utils.Logger
	maxDepth int

	mu        sync.RWMutex
	routes    map[string]HandlerFunc
	onFailure func(req Request, err error)
}

// NewCrawler creates a ready-to-use Crawler.
func NewCrawler(fetcher Fetcher, opts Options, logger *utils.Logger) *Crawler {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &Crawler{
		fetcher: fetcher,
		pool:    utils.NewWorkerPool(opts.MaxConcurrency, opts.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			Logger:      logger,
		},
		visited:  utils.NewKeySet(),
		logger:   logger,
		maxDepth: opts.MaxDepth,
		routes:   make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for a label.
func (c *Crawler) Handle(label string, h HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[label] = h
}

// OnFailure registers a callback for pages that could not be fetched or
// whose handler failed.
func (c *Crawler) OnFailure(fn func(req Request, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = fn
}

// Run crawls from seeds until no request is left or ctx is cancelled.
func (c *Crawler) Run(ctx context.Context, seeds []Request) error {
	c.logger.Info("[crawler] Starting with %d seed request(s)", len(seeds))
	start := time.Now()

	for _, r := range seeds {
		c.Enqueue(ctx, r)
	}
	c.pool.Wait()

	c.logger.Info("[crawler] Done — %d URL(s) visited in %s", c.visited.Size(), time.Since(start).Round(time.Millisecond))
	return ctx.Err()
}

// Enqueue schedules a request unless its URL was already seen.
func (c *Crawler) Enqueue(ctx context.Context, r Request) {
	if r.URL == "" {
		return
	}
	if c.maxDepth > 0 && r.Depth > c.maxDepth {
		c.logger.Debug("[crawler] Depth %d over limit, dropping %s", r.Depth, r.URL)
		return
	}
	if !c.visited.Add(r.URL) {
		c.logger.Debug("[crawler] Already visited: %s", r.URL)
		return
	}
	c.pool.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		c.process(ctx, r)
	})
}

// Visited returns how many distinct URLs were scheduled.
func (c *Crawler) Visited() int { return c.visited.Size() }

func (c *Crawler) process(ctx context.Context, r Request) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("[crawler] Handler panic on %s: %v\n%s", r.URL, rec, debug.Stack())
			c.fail(r, fmt.Errorf("handler panic: %v", rec))
		}
	}()

	c.mu.RLock()
	handler, ok := c.routes[r.Label]
	c.mu.RUnlock()
	if !ok {
		c.fail(r, fmt.Errorf("no handler for label %q", r.Label))
		return
	}

	var res *Response
	err := c.retry.Do(ctx, "fetch "+r.URL, func() error {
		var ferr error
		res, ferr = c.fetcher.Fetch(ctx, r.URL)
		return ferr
	})
	if err != nil {
		c.logger.Error("[crawler] %v", err)
		c.fail(r, err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		c.fail(r, fmt.Errorf("parse %s: %w", r.URL, err))
		return
	}

	page := &Page{
		URL:           res.URL,
		RedirectChain: res.RedirectChain,
		Doc:           doc,
		Request:       r,
		crawler:       c,
		ctx:           ctx,
	}
	if page.URL == "" {
		page.URL = r.URL
	}
	if page.URL != r.URL {
		c.visited.Add(page.URL)
	}

	if err := handler(ctx, page); err != nil {
		c.fail(r, err)
	}
}

func (c *Crawler) fail(r Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.mu.RLock()
	fn := c.onFailure
	c.mu.RUnlock()
	if fn != nil {
		fn(r, err)
	}
}
