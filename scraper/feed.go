package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedReader discovers detail pages from a site's RSS or Atom feed.
type FeedReader struct {
	parser *gofeed.Parser
}

// NewFeedReader creates a reader that identifies itself with userAgent.
func NewFeedReader(userAgent string, timeout time.Duration) *FeedReader {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	p.Client = &http.Client{Timeout: timeout}
	return &FeedReader{parser: p}
}

// Links fetches feedURL and returns the item links in feed order.
func (r *FeedReader) Links(ctx context.Context, feedURL string) ([]string, error) {
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feedURL, err)
	}
	return itemLinks(feed), nil
}

// ParseLinks reads the item links of an in-memory feed document.
func (r *FeedReader) ParseLinks(raw string) ([]string, error) {
	feed, err := r.parser.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return itemLinks(feed), nil
}

func itemLinks(feed *gofeed.Feed) []string {
	links := make([]string, 0, len(feed.Items))
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}
