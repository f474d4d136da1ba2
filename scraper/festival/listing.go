package festival

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/scraper/extract"
)

// StartURLs returns the listing pages a run starts from: the configured
// start URLs followed by one calendar page per month, from the current month
// to MonthsAhead months later, for month-templated sources.
func (p *Parser) StartURLs(now time.Time) []string {
	urls := append([]string{}, p.src.Listing.StartURLs...)
	tpl := p.src.Listing.MonthTemplate
	if tpl == "" {
		return urls
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= p.src.Listing.MonthsAhead; i++ {
		m := first.AddDate(0, i, 0)
		r := strings.NewReplacer(
			"{month}", strconv.Itoa(int(m.Month())),
			"{mm}", m.Format("01"),
			"{year}", strconv.Itoa(m.Year()),
		)
		urls = append(urls, r.Replace(tpl))
	}
	return urls
}

// DetailLinks returns the absolute detail-page links of a listing page, in
// page order and without repeats. Links must match the link pattern when
// one is configured and stay on the source's own hosts.
func (p *Parser) DetailLinks(doc *goquery.Document, pageURL string) []string {
	var links []string
	seen := make(map[string]bool)
	doc.Find(p.src.Listing.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		link := stripFragment(extract.ResolveURL(pageURL, href))
		if seen[link] || !p.ownHost(link) {
			return
		}
		if p.linkPattern != nil && !p.linkPattern.MatchString(link) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links
}

// NextPage returns the absolute URL of the next listing page, or "".
func (p *Parser) NextPage(doc *goquery.Document, pageURL string) string {
	if p.src.Listing.NextSelector == "" {
		return ""
	}
	href, ok := doc.Find(p.src.Listing.NextSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	next := stripFragment(extract.ResolveURL(pageURL, href))
	if next == pageURL {
		return ""
	}
	return next
}

func (p *Parser) ownHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	if len(p.src.Domains) == 0 {
		return true
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range p.src.Domains {
		if host == strings.TrimPrefix(strings.ToLower(d), "www.") {
			return true
		}
	}
	return false
}

func stripFragment(link string) string {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		return link[:i]
	}
	return link
}
