package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"purser/internal/models"
	"purser/internal/notify"
	"purser/internal/scraper"
)

// fakeNotifier records deliveries for assertions.
type fakeNotifier struct {
	mu      sync.Mutex
	hits    []notify.TargetHit
	digests []notify.Digest
	fail    bool
}

func (n *fakeNotifier) Name() string { return "fake" }

func (n *fakeNotifier) SendTargetHit(_ context.Context, hit notify.TargetHit) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("channel down")
	}
	n.hits = append(n.hits, hit)
	return nil
}

func (n *fakeNotifier) SendDigest(_ context.Context, digest notify.Digest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("channel down")
	}
	n.digests = append(n.digests, digest)
	return nil
}

func (n *fakeNotifier) hitCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.hits)
}

// fakeStore serves a mutable product page.
type fakeStore struct {
	mu     sync.Mutex
	html   string
	status int
}

func (s *fakeStore) set(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
	s.status = http.StatusOK
}

func (s *fakeStore) setStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *fakeStore) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != 0 && s.status != http.StatusOK {
		w.WriteHeader(s.status)
		return
	}
	fmt.Fprint(w, s.html)
}

func productPage(title string, price string) string {
	return fmt.Sprintf(`<html><head>
		<meta property="og:title" content="%s">
		<meta property="og:site_name" content="Fake Store">
		<meta property="product:price:amount" content="%s">
		<meta property="product:price:currency" content="USD">
	</head><body></body></html>`, title, price)
}

func newTestChecker(db *gorm.DB, notifier notify.Notifier) *Checker {
	// High domain rate so tests never sit in the limiter.
	return NewChecker(db, scraper.NewFetcher(0), scraper.NewRegistry(), notifier, 1000)
}

func TestCheckTargetSatisfiedExactlyOnce(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	notifier := &fakeNotifier{}
	checker := newTestChecker(db, notifier)

	store := &fakeStore{}
	server := httptest.NewServer(store)
	defer server.Close()

	item, err := svc.CreateItem(models.AddItemRequest{URL: server.URL + "/itm/1", Target: "19.99"})
	require.NoError(t, err)

	// Above target: observation recorded, target untouched.
	store.set(productPage("Headphones", "24.99"))
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerManual))

	assert.Equal(t, models.StatusOK, item.Status)
	assert.Equal(t, "Headphones", item.Title)
	assert.Equal(t, "USD", item.Currency)
	assert.Equal(t, 0, notifier.hitCount())

	var target models.Target
	require.NoError(t, db.Where("item_id = ?", item.ID).First(&target).Error)
	assert.False(t, target.Satisfied)

	// Drop to 18.50: target satisfied, one notification.
	store.set(productPage("Headphones", "18.50"))
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerScheduled))

	require.NoError(t, db.Where("item_id = ?", item.ID).First(&target).Error)
	assert.True(t, target.Satisfied)
	require.NotNil(t, target.SatisfiedAt)
	require.NotNil(t, target.SatisfiedPriceID)
	assert.Equal(t, 1, notifier.hitCount())
	assert.Equal(t, int64(1850), notifier.hits[0].Price.AmountCents)

	// Price still below target: no second notification.
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerScheduled))
	assert.Equal(t, 1, notifier.hitCount())

	// History kept every observation in order.
	prices, err := svc.PriceHistory(item.ID)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, int64(2499), prices[0].AmountCents)
	assert.Equal(t, int64(1850), prices[1].AmountCents)

	// Each run left an outcome record.
	var runs int64
	db.Model(&models.CheckRun{}).Where("item_id = ? AND status = ?", item.ID, models.CheckOK).Count(&runs)
	assert.Equal(t, int64(3), runs)
}

func TestCheckNotificationFailureKeepsTargetSatisfied(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	notifier := &fakeNotifier{fail: true}
	checker := newTestChecker(db, notifier)

	store := &fakeStore{}
	store.set(productPage("Lamp", "8.00"))
	server := httptest.NewServer(store)
	defer server.Close()

	item, err := svc.CreateItem(models.AddItemRequest{URL: server.URL + "/itm/2", Target: "10.00"})
	require.NoError(t, err)

	require.NoError(t, checker.Check(context.Background(), item, models.TriggerManual))

	var target models.Target
	require.NoError(t, db.Where("item_id = ?", item.ID).First(&target).Error)
	assert.True(t, target.Satisfied, "delivery failure must not roll back the transition")

	// Recovery of the channel must not cause a late duplicate.
	notifier.fail = false
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerManual))
	assert.Equal(t, 0, notifier.hitCount())
}

func TestCheckFetchErrorRecorded(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	checker := newTestChecker(db, &fakeNotifier{})

	store := &fakeStore{}
	store.setStatus(http.StatusInternalServerError)
	server := httptest.NewServer(store)
	defer server.Close()

	item, err := svc.CreateItem(models.AddItemRequest{URL: server.URL + "/itm/3"})
	require.NoError(t, err)

	require.NoError(t, checker.Check(context.Background(), item, models.TriggerScheduled))
	assert.Equal(t, models.StatusFetchError, item.Status)
	assert.Equal(t, 1, item.FailStreak)
	assert.NotEmpty(t, item.LastError)

	require.NoError(t, checker.Check(context.Background(), item, models.TriggerScheduled))
	assert.Equal(t, 2, item.FailStreak, "consecutive fetch errors grow the streak")

	var prices int64
	db.Model(&models.Price{}).Where("item_id = ?", item.ID).Count(&prices)
	assert.Zero(t, prices, "failed checks must not append observations")

	var runs int64
	db.Model(&models.CheckRun{}).Where("item_id = ? AND status = ?", item.ID, models.CheckFetchError).Count(&runs)
	assert.Equal(t, int64(2), runs)
}

func TestCheckParseErrorKeepsMetadata(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	checker := newTestChecker(db, &fakeNotifier{})

	store := &fakeStore{}
	store.set(`<html><head><meta property="og:title" content="Sold Out Gadget"></head><body>unavailable</body></html>`)
	server := httptest.NewServer(store)
	defer server.Close()

	item, err := svc.CreateItem(models.AddItemRequest{URL: server.URL + "/itm/4"})
	require.NoError(t, err)

	require.NoError(t, checker.Check(context.Background(), item, models.TriggerScheduled))

	assert.Equal(t, models.StatusParseError, item.Status)
	assert.Equal(t, 0, item.FailStreak, "parse errors do not drive backoff")
	assert.Equal(t, "Sold Out Gadget", item.Title, "metadata survives a missing price")

	var prices int64
	db.Model(&models.Price{}).Where("item_id = ?", item.ID).Count(&prices)
	assert.Zero(t, prices)
}

func TestCheckRefusedWhileLocked(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	checker := newTestChecker(db, &fakeNotifier{})

	item, err := svc.CreateItem(models.AddItemRequest{URL: "https://example.com/itm/5"})
	require.NoError(t, err)

	require.True(t, checker.locks.TryLock(item.ID))
	defer checker.locks.Unlock(item.ID)

	err = checker.Check(context.Background(), item, models.TriggerManual)
	assert.ErrorIs(t, err, ErrCheckInProgress)
}

func TestUpsertFlagsNoDuplicates(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	checker := newTestChecker(db, &fakeNotifier{})

	item, err := svc.CreateItem(models.AddItemRequest{URL: "https://example.com/itm/7"})
	require.NoError(t, err)

	listing := &scraper.Listing{FreeShipping: true, AcceptsOffers: true}
	first := time.Now().Add(-time.Hour)
	checker.upsertFlags(item, listing, first)

	second := time.Now()
	checker.upsertFlags(item, &scraper.Listing{FreeShipping: true}, second)

	var flags []models.Flag
	require.NoError(t, db.Where("item_id = ?", item.ID).Order("kind ASC").Find(&flags).Error)
	require.Len(t, flags, 2, "one row per (item, kind)")

	for _, f := range flags {
		if f.Kind == models.FlagFreeShipping {
			assert.WithinDuration(t, second, f.ObservedAt, time.Second, "re-observed flag refreshed in place")
		}
	}
}

func TestCheckCurrencyMismatchSkipsTargets(t *testing.T) {
	db := testDB(t)
	svc := NewWatchlistService(db)
	notifier := &fakeNotifier{}
	checker := newTestChecker(db, notifier)

	store := &fakeStore{}
	server := httptest.NewServer(store)
	defer server.Close()

	item, err := svc.CreateItem(models.AddItemRequest{URL: server.URL + "/itm/6", Target: "10.00"})
	require.NoError(t, err)

	// First observation pins the item to EUR.
	store.set(`<html><head>
		<meta property="og:title" content="Import">
		<meta property="product:price:amount" content="30.00">
		<meta property="product:price:currency" content="EUR">
	</head></html>`)
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerManual))
	assert.Equal(t, "EUR", item.Currency)

	// A below-target price in another currency must not satisfy the target.
	store.set(productPage("Import", "5.00"))
	require.NoError(t, checker.Check(context.Background(), item, models.TriggerManual))

	var target models.Target
	require.NoError(t, db.Where("item_id = ?", item.ID).First(&target).Error)
	assert.False(t, target.Satisfied)
	assert.Equal(t, 0, notifier.hitCount())
}
