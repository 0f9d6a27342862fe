package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var pricePatterns = []struct {
	re       *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`(?i)US\s*\$\s*(\d+(?:\.\d{1,2})?)`), "USD"},
	{regexp.MustCompile(`(?i)GBP\s*(\d+(?:\.\d{1,2})?)`), "GBP"},
	{regexp.MustCompile(`(?i)EUR\s*(\d+(?:\.\d{1,2})?)`), "EUR"},
	{regexp.MustCompile(`£\s*(\d+(?:\.\d{1,2})?)`), "GBP"},
	{regexp.MustCompile(`€\s*(\d+(?:\.\d{1,2})?)`), "EUR"},
	{regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`), "USD"},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d{1,2})?)\s*USD`), "USD"},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d{1,2})?)\s*GBP`), "GBP"},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d{1,2})?)\s*EUR`), "EUR"},
}

// ParsePriceText extracts the first recognizable price from free text.
// Thousands separators are stripped before matching, so "US $1,234.56"
// parses as 123456 cents. Returns ok=false when no positive price is found.
func ParsePriceText(text string) (cents int64, currency string, ok bool) {
	if text == "" {
		return 0, "", false
	}
	cleaned := strings.ReplaceAll(text, ",", "")

	for _, p := range pricePatterns {
		match := p.re.FindStringSubmatch(cleaned)
		if match == nil {
			continue
		}
		amount, err := decimal.NewFromString(match[1])
		if err != nil || !amount.IsPositive() {
			continue
		}
		return amount.Mul(decimal.NewFromInt(100)).IntPart(), p.currency, true
	}
	return 0, "", false
}

// ParseAmountText parses a bare decimal amount ("19.99") into cents.
// Used for meta-tag and JSON-LD price values that carry no currency marker.
func ParseAmountText(text string) (int64, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || !amount.IsPositive() {
		return 0, false
	}
	return amount.Mul(decimal.NewFromInt(100)).IntPart(), true
}
