package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"festival-scraper/models"
)

// SocialDomains lists the hosts treated as social networks.
var SocialDomains = []string{"facebook.com", "fb.com", "instagram.com", "twitter.com", "x.com", "youtube.com", "tiktok.com"}

var socialNetworks = []struct {
	name    string
	domains []string
}{
	{"facebook", []string{"facebook.com", "fb.com"}},
	{"instagram", []string{"instagram.com"}},
	{"twitter", []string{"twitter.com", "x.com"}},
}

// share dialogs are links to the network, not profiles
var shareMarkers = []string{"sharer", "/share", "intent/tweet", "/intent/"}

// Contacts collects phones from tel: links, emails from mailto: links and
// absolute http(s) links whose host is not in excludeDomains. It returns nil
// when the page has none of them.
func Contacts(doc *goquery.Document, excludeDomains []string) *models.Contacts {
	c := &models.Contacts{Phones: []string{}, Emails: []string{}, Websites: []string{}}
	seen := make(map[string]bool)
	add := func(list *[]string, v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		*list = append(*list, v)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "tel:"):
			add(&c.Phones, strings.TrimSpace(href[len("tel:"):]))
		case strings.HasPrefix(lower, "mailto:"):
			email := href[len("mailto:"):]
			if i := strings.IndexByte(email, '?'); i >= 0 {
				email = email[:i]
			}
			add(&c.Emails, strings.TrimSpace(email))
		case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
			if !hostIn(href, excludeDomains) {
				add(&c.Websites, href)
			}
		}
	})

	if len(c.Phones)+len(c.Emails)+len(c.Websites) == 0 {
		return nil
	}
	return c
}

// SocialMedia returns the first profile link per network, nil when the page
// links to none.
func SocialMedia(doc *goquery.Document) *models.SocialMedia {
	found := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		for _, m := range shareMarkers {
			if strings.Contains(strings.ToLower(href), m) {
				return
			}
		}
		for _, n := range socialNetworks {
			if _, ok := found[n.name]; ok {
				continue
			}
			if hostIn(href, n.domains) {
				found[n.name] = href
			}
		}
	})
	if len(found) == 0 {
		return nil
	}

	social := &models.SocialMedia{}
	if v, ok := found["facebook"]; ok {
		social.Facebook = &v
	}
	if v, ok := found["instagram"]; ok {
		social.Instagram = &v
	}
	if v, ok := found["twitter"]; ok {
		social.Twitter = &v
	}
	return social
}

// hostIn reports whether the host of rawURL equals, or is a subdomain of,
// one of domains.
func hostIn(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(d, "www."))
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
