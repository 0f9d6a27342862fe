// Package metrics provides Prometheus metrics for Purser.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purser_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purser_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Check Worker Metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purser_checks_total",
			Help: "Total number of item checks by outcome",
		},
		[]string{"status"}, // "ok", "fetch_error", "parse_error", "skipped"
	)

	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purser_check_duration_seconds",
			Help:    "Time taken to check a single item",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	CheckQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "purser_check_queue_size",
			Help: "Number of items waiting in the manual check queue",
		},
	)

	ChecksToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "purser_checks_today",
			Help: "Number of items checked today (resets at midnight)",
		},
	)

	// Observation Metrics
	PriceObservationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purser_price_observations_total",
			Help: "Total number of price observations recorded",
		},
	)

	TargetsSatisfiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purser_targets_satisfied_total",
			Help: "Total number of targets that transitioned to satisfied",
		},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purser_notifications_total",
			Help: "Notification delivery attempts by channel and result",
		},
		[]string{"channel", "result"}, // result: "sent" or "failed"
	)

	DigestsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purser_digests_sent_total",
			Help: "Daily digests delivered",
		},
	)

	// Watchlist Metrics
	WatchlistItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "purser_watchlist_items",
			Help: "Number of items on the watchlist",
		},
	)

	WatchlistItemsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "purser_watchlist_items_by_status",
			Help: "Watchlist items by last check status",
		},
		[]string{"status"},
	)

	ActiveTargets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "purser_active_targets",
			Help: "Number of unsatisfied targets",
		},
	)
)

// UpdateWatchlistMetrics refreshes the watchlist gauges from the database.
func UpdateWatchlistMetrics(db *gorm.DB) {
	var total int64
	db.Table("items").Count(&total)
	WatchlistItems.Set(float64(total))

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	db.Table("items").Select("status, COUNT(*) as count").Group("status").Scan(&counts)
	for _, sc := range counts {
		WatchlistItemsByStatus.WithLabelValues(sc.Status).Set(float64(sc.Count))
	}

	var active int64
	db.Table("targets").Where("satisfied = ?", false).Count(&active)
	ActiveTargets.Set(float64(active))
}
