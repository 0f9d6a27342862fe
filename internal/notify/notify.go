// Package notify delivers alerts when a target price is reached and the
// daily digest. Delivery failures surface as *errs.DeliveryError; callers
// log them and continue, they never block price or target processing.
package notify

import (
	"context"
	"log"
	"time"

	"purser/internal/models"
)

// TargetHit describes a target that was just satisfied by a new price.
type TargetHit struct {
	Item   models.Item
	Target models.Target
	Price  models.Price
}

// DigestLine is one item's row in the daily digest.
type DigestLine struct {
	Title       string
	URL         string
	Latest      *models.Price
	PriceDrop   bool
	TargetHit   bool
	CheckFailed bool
}

// Digest summarizes the watchlist over the last day.
type Digest struct {
	Date           time.Time
	ItemCount      int
	SatisfiedToday int
	Lines          []DigestLine
}

// Notifier is a delivery channel for alerts.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	SendTargetHit(ctx context.Context, hit TargetHit) error
	SendDigest(ctx context.Context, digest Digest) error
}

// LogNotifier writes notifications to the process log. It is the fallback
// channel when neither email nor telegram is configured, so target
// transitions are never silent.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) SendTargetHit(_ context.Context, hit TargetHit) error {
	log.Printf("TARGET HIT: %q is %s (target %s) %s",
		hit.Item.Title, hit.Price.Display(), hit.Target.Describe(), hit.Item.URL)
	return nil
}

func (n *LogNotifier) SendDigest(_ context.Context, digest Digest) error {
	log.Printf("DIGEST %s: %d items tracked, %d targets satisfied today",
		digest.Date.Format("2006-01-02"), digest.ItemCount, digest.SatisfiedToday)
	return nil
}
