package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EbayAdapter parses eBay product pages. eBay price markup varies by
// listing type (buy-it-now, auction, sale), so several selectors are tried
// before falling back to a regex over the page text.
type EbayAdapter struct{}

func NewEbayAdapter() *EbayAdapter {
	return &EbayAdapter{}
}

func (a *EbayAdapter) Name() string { return "ebay" }

func (a *EbayAdapter) CanHandle(domain string) bool {
	return domain == "ebay.com" || strings.HasPrefix(domain, "ebay.") ||
		strings.HasSuffix(domain, ".ebay.com")
}

var ebayPriceSelectors = []string{
	"#prcIsum",
	"[data-testid='x-bin-price']",
	"[data-testid='x-price-primary']",
	"#mm-saleDscPrc",
	"#prcIsum_bidPrice",
}

func (a *EbayAdapter) Parse(doc *goquery.Document, pageURL string) *Listing {
	listing := &Listing{
		SiteName:   "eBay",
		Currency:   "USD",
		Confidence: 1.0,
	}

	listing.Title = metaProperty(doc, "og:title")
	listing.ImageURL = metaProperty(doc, "og:image")

	for _, selector := range ebayPriceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if cents, currency, ok := ParsePriceText(text); ok {
			listing.AmountCents = cents
			listing.Currency = currency
			listing.PriceFound = true
			break
		}
	}

	// Last resort: regex over the whole page. Lower confidence since the
	// first dollar amount on the page is not always the listing price.
	if !listing.PriceFound {
		if cents, currency, ok := ParsePriceText(doc.Text()); ok {
			listing.AmountCents = cents
			listing.Currency = currency
			listing.PriceFound = true
			listing.Confidence = 0.5
		}
	}

	bodyText := strings.ToLower(doc.Text())
	if strings.Contains(bodyText, "best offer") || strings.Contains(bodyText, "make offer") {
		listing.AcceptsOffers = true
	}
	if strings.Contains(bodyText, "free shipping") {
		listing.FreeShipping = true
	}

	return listing
}
