// Package metrics exposes Prometheus collectors for the harvester service.
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
	scrapeAttemptsTotal        *prometheus.CounterVec
	scrapeRetriesTotal         *prometheus.CounterVec
	commentsExtractedTotal     *prometheus.CounterVec
	extractionPasses           *prometheus.HistogramVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	debugCapturesTotal         *prometheus.CounterVec
	probeResultsTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitedTotal           *prometheus.CounterVec
	activeScrapes              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_scrape_attempts_total",
				Help: "Total scrape attempts, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		scrapeRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_scrape_retries_total",
				Help: "Total scrape retries scheduled after a failed attempt.",
			},
			[]string{"platform"},
		)

		commentsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_comments_extracted_total",
				Help: "Total comments returned by successful scrapes.",
			},
			[]string{"platform"},
		)

		extractionPasses = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_extraction_passes",
				Help:    "Extraction passes needed by successful attempts.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"platform"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_scrape_duration_seconds",
				Help:    "Wall-clock duration of whole scrape requests including retries.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"platform"},
		)

		debugCapturesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_debug_captures_total",
				Help: "Debug captures, labeled by stage and result.",
			},
			[]string{"stage", "result"},
		)

		probeResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_probe_results_total",
				Help: "Pre-flight probe results, labeled by classification.",
			},
			[]string{"result"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)

		rateLimitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_rate_limited_total",
				Help: "Requests rejected by the API rate limiter, labeled by route.",
			},
			[]string{"route"},
		)

		activeScrapes = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_scrapes",
				Help: "Number of scrape requests currently running.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProbe counts a pre-flight probe result.
func ObserveProbe(result string) {
	Init()
	probeResultsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a request rejected with 429.
func ObserveRateLimited(route string) {
	Init()
	rateLimitedTotal.WithLabelValues(route).Inc()
}

// IncActiveScrapes increments the running scrapes gauge.
func IncActiveScrapes() {
	Init()
	activeScrapes.Inc()
}

// DecActiveScrapes decrements the running scrapes gauge.
func DecActiveScrapes() {
	Init()
	activeScrapes.Dec()
}
