package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

const maxRedirects = 10

// HTTPFetcher downloads plain HTML pages with colly.
type HTTPFetcher struct {
	base *colly.Collector

	mu        sync.Mutex
	redirects map[string][]string
}

// NewHTTPFetcher creates a fetcher with the given User-Agent and timeout.
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	f := &HTTPFetcher{redirects: make(map[string][]string)}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	// The first hop of via is the URL the crawler asked for; clones share
	// the backend, so the chain is keyed by it.
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		origin := via[0].URL.String()
		f.mu.Lock()
		f.redirects[origin] = append(f.redirects[origin], req.URL.String())
		f.mu.Unlock()
		return nil
	})
	f.base = c
	return f
}

// Fetch downloads url. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	c := f.base.Clone()
	c.Context = ctx

	var res *Response
	var statusErr error
	c.OnResponse(func(r *colly.Response) {
		res = &Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		statusErr = fmt.Errorf("GET %s: status %d: %w", url, r.StatusCode, err)
	})

	err := c.Visit(url)
	chain := f.takeRedirects(url)
	if statusErr != nil {
		return nil, statusErr
	}
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if res == nil {
		return nil, errors.New("GET " + url + ": empty response")
	}

	if len(chain) > 0 {
		res.RedirectChain = append([]string{url}, chain...)
		res.URL = chain[len(chain)-1]
	}
	return res, nil
}

func (f *HTTPFetcher) takeRedirects(url string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	chain := f.redirects[url]
	delete(f.redirects, url)
	return chain
}
