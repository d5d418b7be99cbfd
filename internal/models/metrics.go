package models

import "time"

// SystemMetrics aggregates lightweight runtime statistics for the metrics
// summary endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	TransitionsCommitted     uint64    `json:"transitions_committed"`
	TransitionsRejected      uint64    `json:"transitions_rejected"`
	AccessDenials            uint64    `json:"access_denials"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
