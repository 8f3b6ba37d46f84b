package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// Compensation outcomes recorded by RecordCompensation.
const (
	CompensationEnqueued  = "enqueued"
	CompensationSucceeded = "succeeded"
	CompensationFailed    = "failed"
	CompensationExhausted = "exhausted"
	CompensationDropped   = "dropped"
)

// MetricsService owns the Prometheus registry and keeps a few atomic counters
// for the JSON snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	txDuration      *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
	aggregateWrites *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	txCount              uint64
	txDurationTotal      uint64
	compEnqueued         uint64
	compSucceeded        uint64
	compExhausted        uint64
}

// NewMetricsService registers the collectors on a private registry.
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
		Name:    "catalog_cache_latency_seconds",
		Help:    "Latency for catalog cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_cache_write_seconds",
		Help:    "Latency for catalog cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})

	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_transaction_duration_seconds",
		Help:    "Duration of database transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_compensations_total",
		Help: "Compensating identity deletions by outcome",
	}, []string{"outcome"})

	aggregateWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scholar_aggregate_writes_total",
		Help: "Scholar aggregate writes by operation and error kind",
	}, []string{"operation", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups, txDuration,
		compensations, aggregateWrites, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		txDuration:      txDuration,
		compensations:   compensations,
		aggregateWrites: aggregateWrites,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records transaction timing. It satisfies repository.QueryObserver.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.txCount, 1)
	atomic.AddUint64(&m.txDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCompensation counts a compensation outcome.
func (m *MetricsService) RecordCompensation(outcome string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome).Inc()
	switch outcome {
	case CompensationEnqueued:
		atomic.AddUint64(&m.compEnqueued, 1)
	case CompensationSucceeded:
		atomic.AddUint64(&m.compSucceeded, 1)
	case CompensationExhausted:
		atomic.AddUint64(&m.compExhausted, 1)
	}
}

// RecordAggregateWrite counts a scholar aggregate write. result is "ok" or an error code.
func (m *MetricsService) RecordAggregateWrite(operation, result string) {
	if m == nil {
		return
	}
	m.aggregateWrites.WithLabelValues(operation, result).Inc()
}

// Snapshot returns the aggregated counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	txCount := atomic.LoadUint64(&m.txCount)
	txDuration := atomic.LoadUint64(&m.txDurationTotal)

	snapshot := models.SystemMetrics{
		RequestsTotal:          requests,
		DBTransactions:         txCount,
		CacheHits:              hits,
		CacheMisses:            misses,
		CompensationsEnqueued:  atomic.LoadUint64(&m.compEnqueued),
		CompensationsSucceeded: atomic.LoadUint64(&m.compSucceeded),
		CompensationsExhausted: atomic.LoadUint64(&m.compExhausted),
		Goroutines:             runtime.NumGoroutine(),
		GeneratedAt:            time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	if txCount > 0 {
		snapshot.AverageDBDurationMs = float64(txDuration) / float64(txCount) / float64(time.Millisecond)
	}
	return snapshot
}
