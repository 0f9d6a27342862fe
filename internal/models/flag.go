package models

import (
	"time"
)

// FlagKind identifies a non-price annotation observed on an item's page.
type FlagKind string

const (
	FlagFreeShipping  FlagKind = "free_shipping"
	FlagAcceptsOffers FlagKind = "accepts_offers"
	// FlagEndingAt carries the listing end time (auctions) as its value.
	FlagEndingAt FlagKind = "ending_at"
)

// Flag is a categorical annotation on an item, upserted by checker runs.
// At most one row exists per (item, kind); re-observing a flag refreshes
// its value and timestamp in place.
type Flag struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ItemID     uint      `json:"item_id" gorm:"not null;uniqueIndex:idx_flag_item_kind"`
	Kind       FlagKind  `json:"kind" gorm:"not null;uniqueIndex:idx_flag_item_kind"`
	Value      string    `json:"value" gorm:"not null;default:'true'"`
	ObservedAt time.Time `json:"observed_at" gorm:"not null"`
}
