package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"purser/internal/errs"
	"purser/internal/metrics"
	"purser/internal/models"
	"purser/internal/notify"
	"purser/internal/scraper"
)

// ErrCheckInProgress is returned when another check already holds the
// item's lock.
var ErrCheckInProgress = errors.New("check already in progress for item")

// Checker fetches the current price and availability for an item,
// producing at most one Price observation per successful run, and drives
// target evaluation and notification off each new observation.
type Checker struct {
	db       *gorm.DB
	fetcher  *scraper.Fetcher
	registry *scraper.Registry
	notifier notify.Notifier
	locks    *itemLocks

	// One limiter per source domain, bounded so arbitrary user-submitted
	// domains cannot grow the map without end.
	domainRate float64
	limiters   *lru.Cache[string, *rate.Limiter]
}

func NewChecker(db *gorm.DB, fetcher *scraper.Fetcher, registry *scraper.Registry, notifier notify.Notifier, domainRate float64) *Checker {
	if domainRate <= 0 {
		domainRate = 0.5
	}
	limiters, err := lru.New[string, *rate.Limiter](256)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Checker{
		db:         db,
		fetcher:    fetcher,
		registry:   registry,
		notifier:   notifier,
		locks:      newItemLocks(),
		domainRate: domainRate,
		limiters:   limiters,
	}
}

func (c *Checker) limiterFor(domain string) *rate.Limiter {
	if limiter, ok := c.limiters.Get(domain); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(c.domainRate), 1)
	c.limiters.Add(domain, limiter)
	return limiter
}

// Check runs one check cycle for the item. Exactly one Price row is
// appended on success; fetch and parse failures are recorded on the item
// and in the check_runs history, never propagated as request failures.
func (c *Checker) Check(ctx context.Context, item *models.Item, trigger models.CheckTrigger) error {
	if !c.locks.TryLock(item.ID) {
		metrics.ChecksTotal.WithLabelValues("skipped").Inc()
		return ErrCheckInProgress
	}
	defer c.locks.Unlock(item.ID)

	if err := c.limiterFor(item.Domain).Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	run := models.CheckRun{
		RunID:     uuid.New().String(),
		ItemID:    item.ID,
		Trigger:   trigger,
		StartedAt: start,
	}

	err := c.checkOnce(ctx, item, &run)

	run.FinishedAt = time.Now()
	if dbErr := c.db.Create(&run).Error; dbErr != nil {
		log.Printf("Checker: failed to record check run for item %d: %v", item.ID, dbErr)
	}
	metrics.ChecksTotal.WithLabelValues(string(run.Status)).Inc()
	metrics.CheckDuration.Observe(time.Since(start).Seconds())
	return err
}

func (c *Checker) checkOnce(ctx context.Context, item *models.Item, run *models.CheckRun) error {
	doc, err := c.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		run.Status = models.CheckFetchError
		run.Error = err.Error()
		c.recordFailure(item, models.StatusFetchError, err)
		return nil
	}

	adapter := c.registry.FindAdapter(item.Domain)
	listing := adapter.Parse(doc, item.URL)

	// Metadata found before a parse failure is still worth keeping.
	c.backfillMetadata(item, listing)

	if !listing.PriceFound {
		parseErr := &errs.ParseError{URL: item.URL, Reason: "no price recognized on page"}
		run.Status = models.CheckParseError
		run.Error = parseErr.Error()
		c.recordFailure(item, models.StatusParseError, parseErr)
		return nil
	}

	now := time.Now()
	price := models.Price{
		ItemID:           item.ID,
		AmountCents:      listing.AmountCents,
		Currency:         listing.Currency,
		FetchedAt:        now,
		SourceConfidence: listing.Confidence,
	}
	if err := c.db.Create(&price).Error; err != nil {
		return err
	}
	metrics.PriceObservationsTotal.Inc()

	c.upsertFlags(item, listing, now)

	// First successful observation pins the item's currency.
	if item.Currency == "" {
		item.Currency = listing.Currency
	}
	item.Status = models.StatusOK
	item.LastError = ""
	item.FailStreak = 0
	item.LastCheckedAt = &now
	if err := c.db.Save(item).Error; err != nil {
		return err
	}

	run.Status = models.CheckOK
	c.evaluateTargets(ctx, item, price)
	return nil
}

func (c *Checker) backfillMetadata(item *models.Item, listing *scraper.Listing) {
	if listing.Title != "" && (item.Title == "" || item.Title == item.URL) {
		item.Title = listing.Title
	}
	if listing.ImageURL != "" && item.ImageURL == "" {
		item.ImageURL = listing.ImageURL
	}
	if listing.SiteName != "" && item.SiteName == "" {
		item.SiteName = listing.SiteName
	}
}

func (c *Checker) recordFailure(item *models.Item, status models.ItemStatus, cause error) {
	now := time.Now()
	item.Status = status
	item.LastError = cause.Error()
	item.LastCheckedAt = &now
	if status == models.StatusFetchError {
		item.FailStreak++
	}
	if err := c.db.Save(item).Error; err != nil {
		log.Printf("Checker: failed to record failure for item %d: %v", item.ID, err)
	}
	log.Printf("Checker: item %d (%s): %v", item.ID, item.Domain, cause)
}

// upsertFlags refreshes the item's flags in place: at most one row exists
// per (item, kind).
func (c *Checker) upsertFlags(item *models.Item, listing *scraper.Listing, observedAt time.Time) {
	flags := make([]models.Flag, 0, 3)
	if listing.FreeShipping {
		flags = append(flags, models.Flag{ItemID: item.ID, Kind: models.FlagFreeShipping, Value: "true", ObservedAt: observedAt})
	}
	if listing.AcceptsOffers {
		flags = append(flags, models.Flag{ItemID: item.ID, Kind: models.FlagAcceptsOffers, Value: "true", ObservedAt: observedAt})
	}
	if listing.EndingAt != "" {
		flags = append(flags, models.Flag{ItemID: item.ID, Kind: models.FlagEndingAt, Value: listing.EndingAt, ObservedAt: observedAt})
	}
	if len(flags) == 0 {
		return
	}

	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "observed_at"}),
	}).Create(&flags).Error
	if err != nil {
		log.Printf("Checker: failed to upsert flags for item %d: %v", item.ID, err)
	}
}

// evaluateTargets marks every qualifying unsatisfied target as satisfied
// and emits one notification per transition. The satisfied state is
// persisted before delivery so a channel failure can never cause a
// re-notification.
func (c *Checker) evaluateTargets(ctx context.Context, item *models.Item, price models.Price) {
	// Targets are compared in the item's currency only; no conversion.
	if item.Currency != "" && price.Currency != item.Currency {
		log.Printf("Checker: item %d price in %s, targets tracked in %s, skipping evaluation",
			item.ID, price.Currency, item.Currency)
		return
	}

	var targets []models.Target
	if err := c.db.Where("item_id = ? AND satisfied = ?", item.ID, false).Find(&targets).Error; err != nil {
		log.Printf("Checker: failed to load targets for item %d: %v", item.ID, err)
		return
	}

	for i := range targets {
		target := &targets[i]
		if !target.Matches(price.AmountCents) {
			continue
		}

		now := time.Now()
		target.Satisfied = true
		target.SatisfiedAt = &now
		target.SatisfiedPriceID = &price.ID
		if err := c.db.Save(target).Error; err != nil {
			log.Printf("Checker: failed to mark target %d satisfied: %v", target.ID, err)
			continue
		}
		metrics.TargetsSatisfiedTotal.Inc()
		log.Printf("Checker: target %d satisfied for item %d at %s", target.ID, item.ID, price.Display())

		hit := notify.TargetHit{Item: *item, Target: *target, Price: price}
		if err := c.notifier.SendTargetHit(ctx, hit); err != nil {
			// Fail soft: the target stays satisfied, delivery is best effort.
			metrics.NotificationsTotal.WithLabelValues(c.notifier.Name(), "failed").Inc()
			log.Printf("Checker: notification failed for target %d: %v", target.ID, err)
		} else {
			metrics.NotificationsTotal.WithLabelValues(c.notifier.Name(), "sent").Inc()
		}
	}
}
