package models

import "time"

// SystemMetrics is a point-in-time snapshot of process-level operational
// metrics, aggregated from the same counters Prometheus scrapes. It backs
// the lightweight /metrics/snapshot convenience endpoint that doesn't
// require a Prometheus scrape loop to inspect service health.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
