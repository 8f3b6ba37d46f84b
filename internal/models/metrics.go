package models

import "time"

// SystemMetrics is a JSON snapshot of the in-process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBTransactions           uint64    `json:"db_transactions"`
	AverageDBDurationMs      float64   `json:"average_db_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CompensationsEnqueued    uint64    `json:"compensations_enqueued"`
	CompensationsSucceeded   uint64    `json:"compensations_succeeded"`
	CompensationsExhausted   uint64    `json:"compensations_exhausted"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
