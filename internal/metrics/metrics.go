// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeCyclesTotal          *prometheus.CounterVec
	scrapeCycleDurationSeconds prometheus.Histogram
	snapshotsPersistedTotal    *prometheus.CounterVec
	snapshotWriteFailuresTotal *prometheus.CounterVec
	malformedViewerTokensTotal prometheus.Counter
	cardsSkippedTotal          *prometheus.CounterVec
	categoriesFailedTotal      prometheus.Counter
	streamGroupMismatchTotal   prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_cycles_total",
				Help: "Total number of scrape cycles, labeled by result.",
			},
			[]string{"result"},
		)

		scrapeCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_cycle_duration_seconds",
				Help:    "Histogram of full scrape cycle durations.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		)

		snapshotsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_snapshots_persisted_total",
				Help: "Total number of snapshots persisted, labeled by collection.",
			},
			[]string{"collection"},
		)

		snapshotWriteFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_snapshot_write_failures_total",
				Help: "Total number of failed bulk inserts, labeled by collection.",
			},
			[]string{"collection"},
		)

		malformedViewerTokensTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_malformed_viewer_tokens_total",
				Help: "Viewer-count tokens that fell through to the zero fallback.",
			},
		)

		cardsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_cards_skipped_total",
				Help: "Cards dropped during extraction, labeled by page kind.",
			},
			[]string{"page"},
		)

		categoriesFailedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_categories_failed_total",
				Help: "Per-category stream scrapes that timed out or errored.",
			},
		)

		streamGroupMismatchTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_stream_group_mismatch_total",
				Help: "Cycles where the parallel stream element groups had unequal lengths.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle records the outcome and duration of one scrape cycle.
func ObserveCycle(result string, duration time.Duration) {
	if scrapeCyclesTotal == nil {
		return
	}
	scrapeCyclesTotal.WithLabelValues(result).Inc()
	scrapeCycleDurationSeconds.Observe(duration.Seconds())
}

// ObservePersisted adds to the persisted snapshot counter for a collection.
func ObservePersisted(collection string, count int) {
	if snapshotsPersistedTotal == nil || count <= 0 {
		return
	}
	snapshotsPersistedTotal.WithLabelValues(collection).Add(float64(count))
}

// ObserveWriteFailure increments the failed insert counter for a collection.
func ObserveWriteFailure(collection string) {
	if snapshotWriteFailuresTotal == nil {
		return
	}
	snapshotWriteFailuresTotal.WithLabelValues(collection).Inc()
}

// ObserveMalformedViewerToken counts a token resolved by the zero fallback.
func ObserveMalformedViewerToken() {
	if malformedViewerTokensTotal == nil {
		return
	}
	malformedViewerTokensTotal.Inc()
}

// ObserveCardSkipped counts a card dropped during extraction of a page kind.
func ObserveCardSkipped(page string) {
	if cardsSkippedTotal == nil {
		return
	}
	cardsSkippedTotal.WithLabelValues(page).Inc()
}

// ObserveCategoryFailed counts a per-category scrape failure.
func ObserveCategoryFailed() {
	if categoriesFailedTotal == nil {
		return
	}
	categoriesFailedTotal.Inc()
}

// ObserveStreamGroupMismatch counts a cycle with unequal element groups.
func ObserveStreamGroupMismatch() {
	if streamGroupMismatchTotal == nil {
		return
	}
	streamGroupMismatchTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
