package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"festival-scraper/utils"
)

// ChromeFetcher renders pages in a shared headless browser. Use it for
// sources that build their event pages with JavaScript.
type ChromeFetcher struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	timeout       time.Duration
	settle        time.Duration
}

// NewChromeFetcher starts the browser allocator. chromeBin may be empty to
// auto-detect an installed Chrome or Chromium.
func NewChromeFetcher(chromeBin, userAgent string, timeout time.Duration, logger *utils.Logger) *ChromeFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[chrome] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &ChromeFetcher{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		timeout:       timeout,
		settle:        time.Second,
	}
}

// Fetch navigates a new tab to url and returns the rendered HTML.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, finalURL string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp %s: %w", url, err)
	}

	res := &Response{URL: finalURL, StatusCode: 200, Body: []byte(html)}
	if finalURL != "" && finalURL != url {
		res.RedirectChain = []string{url, finalURL}
	}
	return res, nil
}

// Close shuts the browser down.
func (f *ChromeFetcher) Close() {
	f.cancelBrowser()
	f.cancelAlloc()
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
