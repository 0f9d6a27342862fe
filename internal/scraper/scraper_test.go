package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.ebay.com/itm/123456", "ebay.com"},
		{"https://shop.example.co.uk/product/42", "shop.example.co.uk"},
		{"http://EXAMPLE.com/x", "example.com"},
		{"not a url", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		if got := DomainFromURL(tt.url); got != tt.want {
			t.Errorf("DomainFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestFindAdapter(t *testing.T) {
	registry := NewRegistry()

	if got := registry.FindAdapter("ebay.com").Name(); got != "ebay" {
		t.Errorf("adapter for ebay.com = %q, want ebay", got)
	}
	if got := registry.FindAdapter("ebay.co.uk").Name(); got != "ebay" {
		t.Errorf("adapter for ebay.co.uk = %q, want ebay", got)
	}
	if got := registry.FindAdapter("example.com").Name(); got != "generic" {
		t.Errorf("adapter for example.com = %q, want generic", got)
	}
}

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test HTML: %v", err)
	}
	return doc
}

func TestGenericAdapterMetaPrice(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Mechanical Keyboard">
		<meta property="og:image" content="https://example.com/kb.jpg">
		<meta property="og:site_name" content="Example Shop">
		<meta property="product:price:amount" content="79.99">
		<meta property="product:price:currency" content="eur">
	</head><body></body></html>`

	listing := NewGenericAdapter().Parse(mustParse(t, html), "https://example.com/kb")

	if listing.Title != "Mechanical Keyboard" {
		t.Errorf("Title = %q", listing.Title)
	}
	if listing.SiteName != "Example Shop" {
		t.Errorf("SiteName = %q", listing.SiteName)
	}
	if !listing.PriceFound || listing.AmountCents != 7999 {
		t.Errorf("price = %d (found=%v), want 7999", listing.AmountCents, listing.PriceFound)
	}
	if listing.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", listing.Currency)
	}
	if listing.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", listing.Confidence)
	}
}

func TestGenericAdapterJSONLD(t *testing.T) {
	html := `<html><head><title>Widget - Store</title>
		<script type="application/ld+json">
		{"@type":"Product","name":"Widget","offers":{"price":"24.99","priceCurrency":"USD"}}
		</script>
	</head><body></body></html>`

	listing := NewGenericAdapter().Parse(mustParse(t, html), "https://store.example/widget")

	if listing.Title != "Widget - Store" {
		t.Errorf("Title = %q", listing.Title)
	}
	if !listing.PriceFound || listing.AmountCents != 2499 {
		t.Errorf("price = %d (found=%v), want 2499", listing.AmountCents, listing.PriceFound)
	}
	if listing.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", listing.Confidence)
	}
	if listing.SiteName != "store.example" {
		t.Errorf("SiteName = %q, want domain fallback", listing.SiteName)
	}
}

func TestGenericAdapterPriceSelector(t *testing.T) {
	html := `<html><head><title>Lamp</title></head>
	<body><div class="price">£12.50</div></body></html>`

	listing := NewGenericAdapter().Parse(mustParse(t, html), "https://example.com/lamp")

	if !listing.PriceFound || listing.AmountCents != 1250 {
		t.Errorf("price = %d (found=%v), want 1250", listing.AmountCents, listing.PriceFound)
	}
	if listing.Currency != "GBP" {
		t.Errorf("Currency = %q, want GBP", listing.Currency)
	}
}

func TestGenericAdapterNoPrice(t *testing.T) {
	html := `<html><head><title>About Us</title></head><body><p>Hello</p></body></html>`

	listing := NewGenericAdapter().Parse(mustParse(t, html), "https://example.com/about")

	if listing.PriceFound {
		t.Error("expected no price on a page without price markup")
	}
	if listing.Title != "About Us" {
		t.Errorf("Title = %q, metadata should survive a missing price", listing.Title)
	}
}

func TestEbayAdapterListing(t *testing.T) {
	html := `<html><head><title>eBay listing</title></head><body>
		<h1>Vintage Camera</h1>
		<div data-testid="x-price-primary"><span>US $149.99</span></div>
		<div>Free shipping. Or Best Offer accepted.</div>
	</body></html>`

	listing := NewEbayAdapter().Parse(mustParse(t, html), "https://www.ebay.com/itm/99")

	if !listing.PriceFound || listing.AmountCents != 14999 {
		t.Errorf("price = %d (found=%v), want 14999", listing.AmountCents, listing.PriceFound)
	}
	if listing.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", listing.Currency)
	}
	if !listing.FreeShipping {
		t.Error("expected FreeShipping flag")
	}
	if !listing.AcceptsOffers {
		t.Error("expected AcceptsOffers flag")
	}
}
