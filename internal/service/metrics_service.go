package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a lightweight view of the counters for the health endpoint.
type MetricsSnapshot struct {
	Requests          uint64  `json:"requests"`
	AvgRequestMs      float64 `json:"avgRequestMs"`
	CacheHitRatio     float64 `json:"cacheHitRatio"`
	Accepted          uint64  `json:"accepted"`
	Rejected          uint64  `json:"rejected"`
	IndexSize         int64   `json:"indexSize"`
	NotificationsSent uint64  `json:"notificationsSent"`
	JobFailures       uint64  `json:"jobFailures"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	intakeTotal     *prometheus.CounterVec
	intakeDuration  prometheus.Observer
	classifications *prometheus.CounterVec
	similarity      *prometheus.CounterVec
	duplicates      prometheus.Observer
	indexSize       prometheus.Gauge
	transitions     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	jobFailures     *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	acceptedCount        uint64
	rejectedCount        uint64
	notificationCount    uint64
	jobFailureCount      uint64
	indexSizeValue       int64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	intakeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_intake_total",
		Help: "Complaint submissions by source and outcome",
	}, []string{"source", "outcome"})

	intakeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "complaint_intake_duration_seconds",
		Help:    "End-to-end intake latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	classifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_classifications_total",
		Help: "Classifier outcomes by backend",
	}, []string{"backend", "outcome"})

	similarity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_similarity_lookups_total",
		Help: "Similarity lookups by outcome",
	}, []string{"outcome"})

	duplicates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "complaint_similarity_matches",
		Help:    "Number of near-duplicates returned per lookup",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	indexSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "complaint_similarity_index_size",
		Help: "Number of complaints held in the similarity index",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_status_transitions_total",
		Help: "Status changes by target status",
	}, []string{"status"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_notifications_total",
		Help: "Notifications by sink and outcome",
	}, []string{"sink", "outcome"})

	jobFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "background_job_failures_total",
		Help: "Background jobs that exhausted their retries",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		intakeTotal, intakeDuration, classifications, similarity, duplicates, indexSize, transitions, notifications,
		jobFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		intakeTotal:     intakeTotal,
		intakeDuration:  intakeDuration,
		classifications: classifications,
		similarity:      similarity,
		duplicates:      duplicates,
		indexSize:       indexSize,
		transitions:     transitions,
		notifications:   notifications,
		jobFailures:     jobFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveIntake records one submission outcome: accepted, rejected or failed.
func (m *MetricsService) ObserveIntake(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.intakeTotal.WithLabelValues(source, outcome).Inc()
	m.intakeDuration.Observe(duration.Seconds())
	switch outcome {
	case "accepted":
		atomic.AddUint64(&m.acceptedCount, 1)
	case "rejected":
		atomic.AddUint64(&m.rejectedCount, 1)
	}
}

// ObserveClassification counts classifier outcomes per backend.
func (m *MetricsService) ObserveClassification(backend, outcome string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(backend, outcome).Inc()
}

// ObserveSimilarity counts lookups and the number of matches returned.
func (m *MetricsService) ObserveSimilarity(outcome string, candidates int) {
	if m == nil {
		return
	}
	m.similarity.WithLabelValues(outcome).Inc()
	if outcome != "unavailable" {
		m.duplicates.Observe(float64(candidates))
	}
}

// SetIndexSize publishes the similarity index size.
func (m *MetricsService) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.indexSize.Set(float64(n))
	atomic.StoreInt64(&m.indexSizeValue, int64(n))
}

// ObserveTransition counts status changes.
func (m *MetricsService) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// ObserveNotification counts notification deliveries per sink.
func (m *MetricsService) ObserveNotification(sink, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(sink, outcome).Inc()
	if outcome == "sent" {
		atomic.AddUint64(&m.notificationCount, 1)
	}
}

// ObserveJobFailure counts jobs dropped after their last retry.
func (m *MetricsService) ObserveJobFailure(jobType string) {
	if m == nil {
		return
	}
	m.jobFailures.WithLabelValues(jobType).Inc()
	atomic.AddUint64(&m.jobFailureCount, 1)
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		Requests:          requests,
		AvgRequestMs:      avgRequestMs,
		CacheHitRatio:     cacheRatio,
		Accepted:          atomic.LoadUint64(&m.acceptedCount),
		Rejected:          atomic.LoadUint64(&m.rejectedCount),
		IndexSize:         atomic.LoadInt64(&m.indexSizeValue),
		NotificationsSent: atomic.LoadUint64(&m.notificationCount),
		JobFailures:       atomic.LoadUint64(&m.jobFailureCount),
	}
}
