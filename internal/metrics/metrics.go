package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Privacy flag cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// View metrics
	ViewsRecordedTotal    prometheus.CounterVec
	ViewRedactionsTotal   prometheus.CounterVec
	PrivacyTogglesTotal   prometheus.CounterVec
	AggregateRepairsTotal prometheus.CounterVec
	AggregateRepairTime   prometheus.Histogram
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of requests rejected by a rate limiter",
				},
				[]string{"endpoint", "method"},
			),

			ViewsRecordedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "views_recorded_total",
					Help: "Post views recorded, by outcome (first_view, repeat_view, self_view)",
				},
				[]string{"outcome"},
			),
			ViewRedactionsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "view_redactions_total",
					Help: "Responses where view data was redacted, by surface",
				},
				[]string{"surface"},
			),
			PrivacyTogglesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "privacy_toggles_total",
					Help: "viewCountsHidden updates, by resulting state",
				},
				[]string{"state"},
			),
			AggregateRepairsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "aggregate_repairs_total",
					Help: "Users processed by the aggregate repair job, by result",
				},
				[]string{"result"},
			),
			AggregateRepairTime: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "aggregate_repair_duration_seconds",
					Help:    "Duration of a full aggregate repair run",
					Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
				},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}

// RecordView counts a recorded view by outcome
func RecordView(outcome string) {
	Get().ViewsRecordedTotal.WithLabelValues(outcome).Inc()
}

// RecordRedaction counts a redacted response on a surface (self, user, post, viewers)
func RecordRedaction(surface string) {
	Get().ViewRedactionsTotal.WithLabelValues(surface).Inc()
}

// RecordPrivacyToggle counts a viewCountsHidden write
func RecordPrivacyToggle(hidden bool) {
	state := "visible"
	if hidden {
		state = "hidden"
	}
	Get().PrivacyTogglesTotal.WithLabelValues(state).Inc()
}

// RecordRepairRun records the outcome of a full repair run
func RecordRepairRun(fixed, failed, scanned int, duration time.Duration) {
	m := Get()
	m.AggregateRepairsTotal.WithLabelValues("fixed").Add(float64(fixed))
	m.AggregateRepairsTotal.WithLabelValues("failed").Add(float64(failed))
	m.AggregateRepairsTotal.WithLabelValues("consistent").Add(float64(scanned - fixed - failed))
	m.AggregateRepairTime.Observe(duration.Seconds())
}

// RecordCacheHit counts a cache hit
func RecordCacheHit(cacheName string) {
	Get().CacheHitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss counts a cache miss
func RecordCacheMiss(cacheName string) {
	Get().CacheMissesTotal.WithLabelValues(cacheName).Inc()
}

// RecordRateLimitExceeded counts a request rejected by a rate limiter
func RecordRateLimitExceeded(endpoint, method string) {
	Get().RateLimitExceededTotal.WithLabelValues(endpoint, method).Inc()
}
