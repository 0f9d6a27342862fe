// Package scraper extracts listing data from product pages. Adapters are
// pure parsers over fetched documents; the Fetcher owns HTTP concerns so
// adapters stay testable against canned HTML.
package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Listing is what an adapter extracts from a product page. PriceFound
// distinguishes "no price on the page" from a zero price; metadata fields
// may be populated even when the price is not.
type Listing struct {
	Title       string
	ImageURL    string
	SiteName    string
	AmountCents int64
	Currency    string
	PriceFound  bool
	Confidence  float64

	FreeShipping  bool
	AcceptsOffers bool
	EndingAt      string
}

// Adapter parses listings for a family of source domains.
type Adapter interface {
	Name() string
	CanHandle(domain string) bool
	Parse(doc *goquery.Document, pageURL string) *Listing
}

// Registry holds adapters in order of preference: domain-specific adapters
// first, the generic OpenGraph adapter last as the universal fallback.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds the default adapter set.
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewEbayAdapter(),
			NewGenericAdapter(),
		},
	}
}

// FindAdapter returns the adapter for the given source domain. The generic
// adapter handles every domain, so the result is never nil.
func (r *Registry) FindAdapter(domain string) Adapter {
	for _, a := range r.adapters {
		if a.CanHandle(domain) {
			return a
		}
	}
	return r.adapters[len(r.adapters)-1]
}

// DomainFromURL extracts the source domain from a URL, without the www
// prefix. Returns "unknown" when the URL does not parse.
func DomainFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// metaProperty reads an OpenGraph-style meta tag, e.g. og:title.
func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(content)
}
