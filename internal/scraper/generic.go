package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GenericAdapter is the fallback for any domain, reading OpenGraph and
// product metadata that most storefronts emit.
type GenericAdapter struct{}

func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

func (a *GenericAdapter) Name() string { return "generic" }

func (a *GenericAdapter) CanHandle(domain string) bool { return true }

var jsonLDPriceRe = regexp.MustCompile(`"price"\s*:\s*"?(\d+(?:\.\d{1,2})?)"?`)

func (a *GenericAdapter) Parse(doc *goquery.Document, pageURL string) *Listing {
	listing := &Listing{
		Currency:   "USD",
		Confidence: 1.0,
	}

	listing.Title = metaProperty(doc, "og:title")
	if listing.Title == "" {
		listing.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	listing.ImageURL = metaProperty(doc, "og:image")
	listing.SiteName = metaProperty(doc, "og:site_name")
	if listing.SiteName == "" {
		listing.SiteName = DomainFromURL(pageURL)
	}

	// product:price:amount is the most reliable signal when present.
	if amount := metaProperty(doc, "product:price:amount"); amount != "" {
		if cents, ok := ParseAmountText(amount); ok {
			listing.AmountCents = cents
			listing.PriceFound = true
			if currency := metaProperty(doc, "product:price:currency"); currency != "" {
				listing.Currency = strings.ToUpper(currency)
			}
		}
	}

	// Fall back to JSON-LD structured data.
	if !listing.PriceFound {
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			match := jsonLDPriceRe.FindStringSubmatch(s.Text())
			if match == nil {
				return true
			}
			if cents, ok := ParseAmountText(match[1]); ok {
				listing.AmountCents = cents
				listing.PriceFound = true
				listing.Confidence = 0.8
				return false
			}
			return true
		})
	}

	// Common price markup as a last structured attempt.
	if !listing.PriceFound {
		for _, selector := range []string{`[itemprop="price"]`, ".price", "#price"} {
			sel := doc.Find(selector).First()
			text := sel.AttrOr("content", "")
			if text == "" {
				text = strings.TrimSpace(sel.Text())
			}
			if text == "" {
				continue
			}
			if cents, currency, ok := ParsePriceText(text); ok {
				listing.AmountCents = cents
				listing.Currency = currency
				listing.PriceFound = true
				listing.Confidence = 0.7
				break
			}
			if cents, ok := ParseAmountText(text); ok {
				listing.AmountCents = cents
				listing.PriceFound = true
				listing.Confidence = 0.6
				break
			}
		}
	}

	return listing
}
