package models

import (
	"fmt"
	"time"
)

// Price is a single observation of an item's price. Rows are append-only:
// once written they are never updated or reordered, and the most recent
// FetchedAt is the item's current price.
type Price struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ItemID           uint      `json:"item_id" gorm:"not null;index:idx_price_item_fetched"`
	AmountCents      int64     `json:"amount_cents" gorm:"not null"`
	Currency         string    `json:"currency" gorm:"not null;default:'USD'"`
	FetchedAt        time.Time `json:"fetched_at" gorm:"not null;index:idx_price_item_fetched"`
	SourceConfidence float64   `json:"source_confidence" gorm:"default:1"`
}

// Amount returns the observed price in major units.
func (p Price) Amount() float64 {
	return float64(p.AmountCents) / 100
}

// Display formats the price for notifications and digests, e.g. "$18.50 USD".
func (p Price) Display() string {
	return fmt.Sprintf("%s%.2f %s", currencySymbol(p.Currency), p.Amount(), p.Currency)
}

func currencySymbol(currency string) string {
	switch currency {
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "EUR":
		return "€"
	default:
		return ""
	}
}
