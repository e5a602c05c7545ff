// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// accessRequests counts access request lifecycle events.
	accessRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_access_requests_total",
		Help: "Access request events by kind",
	}, []string{"event"}) // event: submitted, approved, rejected, deleted

	// signIns counts sign-in attempts by outcome.
	signIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_signins_total",
		Help: "Sign-in attempts by outcome",
	}, []string{"outcome"})

	// usersMaterialized counts app user writes on login.
	usersMaterialized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_users_materialized_total",
		Help: "App user records written on login by path",
	}, []string{"path"}) // path: created, merged, updated

	// entriesWritten counts price entry mutations.
	entriesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_price_entries_written_total",
		Help: "Price entry writes by operation and country",
	}, []string{"op", "country"})

	// comparisonDuration tracks aggregation time.
	comparisonDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grocery_comparison_duration_seconds",
		Help:    "Time taken to aggregate entries into comparisons",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// comparisonItems tracks the number of compared items per request.
	comparisonItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grocery_comparison_items_count",
		Help:    "Number of items in a comparison result",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	// exchangeRate is the SEK to DKK rate last served.
	exchangeRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grocery_exchange_rate_sek_dkk",
		Help: "Current SEK to DKK exchange rate",
	})

	// exchangeRateLookups counts rate lookups by where they were served from.
	exchangeRateLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_exchange_rate_lookups_total",
		Help: "Exchange rate lookups by source",
	}, []string{"source"}) // source: memory, cache, remote, stale, fallback

	// exchangeRateFetchDuration tracks remote rate fetches.
	exchangeRateFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grocery_exchange_rate_fetch_duration_seconds",
		Help:    "Time taken to fetch the exchange rate from the remote API",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// exchangeRateFetchErrors counts failed remote rate fetches.
	exchangeRateFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grocery_exchange_rate_fetch_errors_total",
		Help: "Total number of failed exchange rate fetches",
	})

	// httpRequests counts handled HTTP requests.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// httpDuration tracks HTTP handler latency.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grocery_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// sweeperRuns counts background sweeper runs.
	sweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_sweeper_runs_total",
		Help: "Background sweeper runs by sweeper and result",
	}, []string{"sweeper", "result"})

	// sweeperRemoved counts rows removed by sweepers.
	sweeperRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_sweeper_removed_total",
		Help: "Rows removed by background sweepers",
	}, []string{"sweeper"})
)

// Recorder provides methods to record service metrics. The zero value
// and a nil *Recorder are both usable.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordAccessRequest records an access request lifecycle event.
func (m *Recorder) RecordAccessRequest(event string) {
	accessRequests.WithLabelValues(event).Inc()
}

// RecordSignIn records a sign-in outcome.
func (m *Recorder) RecordSignIn(outcome string) {
	signIns.WithLabelValues(outcome).Inc()
}

// RecordUserMaterialized records an app user write at login.
func (m *Recorder) RecordUserMaterialized(path string) {
	usersMaterialized.WithLabelValues(path).Inc()
}

// RecordEntryWrite records a price entry mutation.
func (m *Recorder) RecordEntryWrite(op, country string) {
	entriesWritten.WithLabelValues(op, country).Inc()
}

// RecordComparison records one aggregation run.
func (m *Recorder) RecordComparison(duration time.Duration, items int) {
	comparisonDuration.Observe(duration.Seconds())
	comparisonItems.Observe(float64(items))
}

// RecordExchangeRate records the rate being served and where it came from.
func (m *Recorder) RecordExchangeRate(rate float64, source string) {
	exchangeRate.Set(rate)
	exchangeRateLookups.WithLabelValues(source).Inc()
}

// RecordExchangeRateFetch records a remote fetch.
func (m *Recorder) RecordExchangeRateFetch(duration time.Duration, success bool) {
	exchangeRateFetchDuration.Observe(duration.Seconds())
	if !success {
		exchangeRateFetchErrors.Inc()
	}
}

// RecordHTTPRequest records a handled HTTP request.
func (m *Recorder) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSweep records a sweeper run.
func (m *Recorder) RecordSweep(sweeper string, removed int64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sweeperRuns.WithLabelValues(sweeper, result).Inc()
	if removed > 0 {
		sweeperRemoved.WithLabelValues(sweeper).Add(float64(removed))
	}
}
