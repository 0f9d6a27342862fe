package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"purser/internal/metrics"
	"purser/internal/models"
	"purser/internal/notify"
)

// DigestService sends one watchlist summary per day at the configured
// time. The digest covers the last 24 hours: latest prices, price drops,
// targets hit, and items whose checks are failing.
type DigestService struct {
	db            *gorm.DB
	notifier      notify.Notifier
	digestHour    int
	digestMinute  int
	checkInterval time.Duration

	mu         sync.RWMutex
	lastDigest time.Time
}

func NewDigestService(db *gorm.DB, notifier notify.Notifier, hour, minute int) *DigestService {
	return &DigestService{
		db:            db,
		notifier:      notifier,
		digestHour:    hour,
		digestMinute:  minute,
		checkInterval: 15 * time.Minute,
	}
}

// Start begins the background digest worker.
func (s *DigestService) Start(ctx context.Context) {
	log.Printf("Digest service started: daily summary at %02d:%02d", s.digestHour, s.digestMinute)

	s.checkAndSend(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Digest service stopping...")
			return
		case <-ticker.C:
			s.checkAndSend(ctx)
		}
	}
}

// checkAndSend sends the digest if the configured time has passed and no
// digest has gone out today.
func (s *DigestService) checkAndSend(ctx context.Context) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	s.mu.RLock()
	alreadySent := !s.lastDigest.Before(today)
	s.mu.RUnlock()
	if alreadySent {
		return
	}

	sendAt := today.Add(time.Duration(s.digestHour)*time.Hour + time.Duration(s.digestMinute)*time.Minute)
	if now.Before(sendAt) {
		return
	}

	if err := s.Send(ctx); err != nil {
		log.Printf("Digest service: failed to send digest: %v", err)
	}
}

// Send builds and delivers the digest immediately, regardless of timing.
func (s *DigestService) Send(ctx context.Context) error {
	digest, err := s.Build()
	if err != nil {
		return err
	}

	if digest.ItemCount == 0 {
		log.Println("Digest service: watchlist empty, skipping digest")
		s.markSent()
		return nil
	}

	if err := s.notifier.SendDigest(ctx, digest); err != nil {
		metrics.NotificationsTotal.WithLabelValues(s.notifier.Name(), "failed").Inc()
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(s.notifier.Name(), "sent").Inc()
	metrics.DigestsSentTotal.Inc()

	s.markSent()
	log.Printf("Digest service: sent digest via %s (%d items, %d targets hit)",
		s.notifier.Name(), digest.ItemCount, digest.SatisfiedToday)
	return nil
}

func (s *DigestService) markSent() {
	s.mu.Lock()
	s.lastDigest = time.Now()
	s.mu.Unlock()
}

// Build assembles the digest for the last 24 hours.
func (s *DigestService) Build() (notify.Digest, error) {
	var items []models.Item
	if err := s.db.Order("created_at DESC").Find(&items).Error; err != nil {
		return notify.Digest{}, err
	}

	since := time.Now().Add(-24 * time.Hour)
	digest := notify.Digest{
		Date:      time.Now(),
		ItemCount: len(items),
	}

	for _, item := range items {
		line := notify.DigestLine{
			Title:       item.Title,
			URL:         item.URL,
			CheckFailed: item.Status == models.StatusFetchError || item.Status == models.StatusParseError,
		}

		var latest models.Price
		err := s.db.Where("item_id = ?", item.ID).
			Order("fetched_at DESC, id DESC").First(&latest).Error
		if err == nil {
			line.Latest = &latest

			// A drop means the latest observation is cheaper than the newest
			// observation that preceded the 24h window.
			var previous models.Price
			err = s.db.Where("item_id = ? AND fetched_at < ?", item.ID, since).
				Order("fetched_at DESC, id DESC").First(&previous).Error
			if err == nil && latest.Currency == previous.Currency && latest.AmountCents < previous.AmountCents {
				line.PriceDrop = true
			}
		}

		var hits int64
		s.db.Model(&models.Target{}).
			Where("item_id = ? AND satisfied = ? AND satisfied_at >= ?", item.ID, true, since).
			Count(&hits)
		if hits > 0 {
			line.TargetHit = true
			digest.SatisfiedToday += int(hits)
		}

		digest.Lines = append(digest.Lines, line)
	}

	return digest, nil
}

// LastSent returns when the most recent digest went out.
func (s *DigestService) LastSent() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDigest
}
