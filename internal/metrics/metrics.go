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
	scraperPagesTotal          *prometheus.CounterVec
	scraperRecordsTotal        prometheus.Counter
	scraperJobsTotal           *prometheus.CounterVec
	scraperCrawlDuration       prometheus.Histogram
	scraperQueueDepth          prometheus.Gauge
	scraperActiveWorkers       prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of pages processed, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		scraperRecordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_records_total",
				Help: "Total number of job postings extracted.",
			},
		)

		scraperJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_jobs_total",
				Help: "Total number of scrape jobs finished, labeled by status.",
			},
			[]string{"status"},
		)

		scraperCrawlDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_crawl_duration_seconds",
				Help:    "Histogram of end-to-end crawl durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		scraperQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_queue_depth",
				Help: "Number of jobs waiting in the queue.",
			},
		)

		scraperActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_workers",
				Help: "Number of workers currently processing a job.",
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

// ObservePage increments the page counter for a crawl stage.
func ObservePage(stage, outcome string) {
	scraperPagesTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveRecords adds extracted record counts.
func ObserveRecords(n int) {
	if n > 0 {
		scraperRecordsTotal.Add(float64(n))
	}
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	scraperJobsTotal.WithLabelValues(status).Inc()
}

// ObserveCrawlDuration records the wall time of one crawl.
func ObserveCrawlDuration(d time.Duration) {
	scraperCrawlDuration.Observe(d.Seconds())
}

// SetQueueDepth records the current queue depth.
func SetQueueDepth(depth int) {
	scraperQueueDepth.Set(float64(depth))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	scraperActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	scraperActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
