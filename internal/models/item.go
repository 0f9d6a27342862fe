package models

import (
	"time"
)

// ItemStatus is the last-known outcome of checking an item.
type ItemStatus string

const (
	// StatusPending means the item has never been checked successfully.
	StatusPending ItemStatus = "pending"
	StatusOK      ItemStatus = "ok"
	// StatusFetchError means the last check could not reach the source page.
	StatusFetchError ItemStatus = "fetch_error"
	// StatusParseError means the page was fetched but no price was recognized.
	StatusParseError ItemStatus = "parse_error"
)

// Item is a tracked product identified by its source URL.
type Item struct {
	ID            uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	URL           string     `json:"url" gorm:"not null;index"`
	Domain        string     `json:"domain" gorm:"index"`
	Title         string     `json:"title"`
	ImageURL      string     `json:"image_url"`
	SiteName      string     `json:"site_name"`
	Currency      string     `json:"currency"` // set by the first successful check
	IsPaused      bool       `json:"is_paused" gorm:"default:false"`
	Notes         string     `json:"notes"`
	Status        ItemStatus `json:"status" gorm:"default:'pending'"`
	LastError     string     `json:"last_error,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	FailStreak    int        `json:"fail_streak" gorm:"default:0"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Prices    []Price    `json:"prices,omitempty" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Targets   []Target   `json:"targets,omitempty" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Flags     []Flag     `json:"flags,omitempty" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CheckRuns []CheckRun `json:"-" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

// ItemView is the watchlist representation of an item: the item itself
// plus its most recent price observation.
type ItemView struct {
	Item        Item     `json:"item"`
	LatestPrice *Price   `json:"latest_price,omitempty"`
	Targets     []Target `json:"targets,omitempty"`
	Flags       []Flag   `json:"flags,omitempty"`
}
