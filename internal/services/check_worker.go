package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"purser/internal/metrics"
	"purser/internal/models"
)

const (
	// maxBackoffExponent caps the fetch-error backoff at base * 2^5.
	maxBackoffExponent = 5
)

// CheckWorker periodically enumerates the watchlist and invokes the
// checker at a bounded rate. Manual "check now" requests go through a
// priority queue ahead of the scheduled rotation.
type CheckWorker struct {
	db          *gorm.DB
	checker     *Checker
	interval    time.Duration
	batchSize   int
	concurrency int
	backoffBase time.Duration
	mu          sync.RWMutex

	// Priority queue for user-requested checks.
	urgentQueue []uint
	urgentMu    sync.Mutex

	// Stats (reset at midnight)
	checkedToday   int
	lastCycleTime  time.Time
	lastStatsDay   time.Time
	lastCycleItems int
}

// WorkerStatus is the externally visible scheduler state.
type WorkerStatus struct {
	LastCycleTime  time.Time `json:"last_cycle_time"`
	NextCycleTime  time.Time `json:"next_cycle_time"`
	LastCycleItems int       `json:"last_cycle_items"`
	CheckedToday   int       `json:"checked_today"`
	QueueSize      int       `json:"queue_size"`
	BatchSize      int       `json:"batch_size"`
	FailingItems   int64     `json:"failing_items"`
}

func NewCheckWorker(db *gorm.DB, checker *Checker, interval time.Duration, batchSize, concurrency int, backoffBase time.Duration) *CheckWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if backoffBase <= 0 {
		backoffBase = time.Hour
	}
	return &CheckWorker{
		db:          db,
		checker:     checker,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: concurrency,
		backoffBase: backoffBase,
	}
}

// QueueCheck adds an item to the high-priority queue and returns its
// position (1-indexed).
func (w *CheckWorker) QueueCheck(itemID uint) int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()

	for i, id := range w.urgentQueue {
		if id == itemID {
			return i + 1
		}
	}
	w.urgentQueue = append(w.urgentQueue, itemID)
	metrics.CheckQueueSize.Set(float64(len(w.urgentQueue)))
	log.Printf("Check worker: queued check for item %d (queue size: %d)", itemID, len(w.urgentQueue))
	return len(w.urgentQueue)
}

// QueueAll enqueues every non-paused item and returns how many were added.
func (w *CheckWorker) QueueAll() (int, error) {
	var ids []uint
	if err := w.db.Model(&models.Item{}).Where("is_paused = ?", false).
		Order("last_checked_at ASC").Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		w.QueueCheck(id)
	}
	return len(ids), nil
}

// GetQueueSize returns the current urgent queue size.
func (w *CheckWorker) GetQueueSize() int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()
	return len(w.urgentQueue)
}

// resetDailyStatsIfNeeded resets checkedToday at midnight.
func (w *CheckWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			log.Printf("Check worker: daily stats reset (previous day: %d items checked)", w.checkedToday)
		}
		w.checkedToday = 0
		w.lastStatsDay = today
	}
}

// Start begins the background check loop. It drains the urgent queue
// frequently and runs a full scheduled cycle every interval.
func (w *CheckWorker) Start(ctx context.Context) {
	log.Printf("Check worker started: full cycle every %v, batch size %d", w.interval, w.batchSize)

	// Run a cycle immediately on startup.
	w.RunCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// The urgent queue is polled much faster than the full cycle so manual
	// checks feel immediate.
	urgentTicker := time.NewTicker(2 * time.Second)
	defer urgentTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Check worker stopping...")
			return
		case <-ticker.C:
			w.RunCycle(ctx)
		case <-urgentTicker.C:
			w.drainUrgent(ctx)
		}
	}
}

// RunCycle checks one batch of eligible items: urgent requests first, then
// the least recently checked items that are not paused and not in backoff.
func (w *CheckWorker) RunCycle(ctx context.Context) {
	w.resetDailyStatsIfNeeded()

	items := w.collectBatch()
	if len(items) == 0 {
		log.Println("Check worker: no items eligible for checking")
		return
	}

	log.Printf("Check worker: checking %d items", len(items))
	checked := w.checkAll(ctx, items, models.TriggerScheduled)

	w.mu.Lock()
	w.checkedToday += checked
	w.lastCycleTime = time.Now()
	w.lastCycleItems = checked
	w.mu.Unlock()

	metrics.ChecksToday.Set(float64(w.checkedToday))
	metrics.UpdateWatchlistMetrics(w.db)
}

func (w *CheckWorker) drainUrgent(ctx context.Context) {
	items := w.takeUrgent(w.batchSize)
	if len(items) == 0 {
		return
	}
	checked := w.checkAll(ctx, items, models.TriggerManual)

	w.mu.Lock()
	w.checkedToday += checked
	w.mu.Unlock()
	metrics.ChecksToday.Set(float64(w.checkedToday))
}

// takeUrgent pops up to n queued items and loads them.
func (w *CheckWorker) takeUrgent(n int) []models.Item {
	w.urgentMu.Lock()
	ids := w.urgentQueue
	if len(ids) > n {
		ids = ids[:n]
		w.urgentQueue = w.urgentQueue[n:]
	} else {
		w.urgentQueue = nil
	}
	metrics.CheckQueueSize.Set(float64(len(w.urgentQueue)))
	w.urgentMu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	var items []models.Item
	if err := w.db.Where("id IN ?", ids).Find(&items).Error; err != nil {
		log.Printf("Check worker: failed to load queued items: %v", err)
		return nil
	}
	return items
}

// collectBatch assembles the scheduled batch: urgent items first, then the
// oldest-checked eligible items up to the batch size.
func (w *CheckWorker) collectBatch() []models.Item {
	items := w.takeUrgent(w.batchSize)
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		seen[item.ID] = true
	}

	remaining := w.batchSize - len(items)
	if remaining <= 0 {
		return items
	}

	var candidates []models.Item
	err := w.db.Where("is_paused = ?", false).
		Order("last_checked_at ASC").
		Limit(w.batchSize * 2). // backoff filtering happens below
		Find(&candidates).Error
	if err != nil {
		log.Printf("Check worker: failed to enumerate items: %v", err)
		return items
	}

	now := time.Now()
	for _, item := range candidates {
		if remaining == 0 {
			break
		}
		if seen[item.ID] {
			continue
		}
		if !w.Eligible(item, now) {
			continue
		}
		items = append(items, item)
		seen[item.ID] = true
		remaining--
	}
	return items
}

// Eligible reports whether the item may be checked at t, applying
// exponential backoff after repeated fetch errors.
func (w *CheckWorker) Eligible(item models.Item, t time.Time) bool {
	if item.IsPaused {
		return false
	}
	if item.FailStreak == 0 || item.LastCheckedAt == nil {
		return true
	}
	exp := item.FailStreak - 1
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	next := item.LastCheckedAt.Add(w.backoffBase * (1 << exp))
	return !t.Before(next)
}

// checkAll runs checks with bounded concurrency and returns how many
// completed (including ones that recorded a failure outcome).
func (w *CheckWorker) checkAll(ctx context.Context, items []models.Item, trigger models.CheckTrigger) int {
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	checked := 0

	for i := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return checked
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item models.Item) {
			defer wg.Done()
			defer func() { <-sem }()

			err := w.checker.Check(ctx, &item, trigger)
			if err != nil && err != ErrCheckInProgress && ctx.Err() == nil {
				log.Printf("Check worker: check failed for item %d: %v", item.ID, err)
				return
			}
			if err == nil {
				mu.Lock()
				checked++
				mu.Unlock()
			}
		}(items[i])
	}

	wg.Wait()
	return checked
}

// GetStatus returns the current scheduler status.
func (w *CheckWorker) GetStatus() WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var failing int64
	w.db.Model(&models.Item{}).Where("fail_streak > 0").Count(&failing)

	return WorkerStatus{
		LastCycleTime:  w.lastCycleTime,
		NextCycleTime:  w.lastCycleTime.Add(w.interval),
		LastCycleItems: w.lastCycleItems,
		CheckedToday:   w.checkedToday,
		QueueSize:      w.GetQueueSize(),
		BatchSize:      w.batchSize,
		FailingItems:   failing,
	}
}
