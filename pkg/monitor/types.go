package monitor

import "time"

// HealthStatus classifies a queue or the whole system.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// QueueMetrics is the derived health snapshot for one queue, recomputed
// wholesale every sampling cycle. Throughput is jobs per hour over the
// trailing window.
type QueueMetrics struct {
	Queue             string        `json:"queue"`
	Pending           int           `json:"pending"`
	Active            int           `json:"active"`
	Completed         int           `json:"completed"`
	Failed            int           `json:"failed"`
	Delayed           int           `json:"delayed"`
	FailureRate       float64       `json:"failure_rate"`
	Throughput        float64       `json:"throughput"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
	LastProcessed     *time.Time    `json:"last_processed,omitempty"`
	Health            HealthStatus  `json:"health"`
	SampledAt         time.Time     `json:"sampled_at"`
}

// WorkerStatus describes a logical worker's run state.
type WorkerStatus string

const (
	WorkerRunning WorkerStatus = "running"
	WorkerPaused  WorkerStatus = "paused"
)

// WorkerMetrics is the derived snapshot for one logical worker type.
// Processed and Failed are monotonic counters fed by actual job completions;
// Uptime accumulates one sampling interval per cycle.
type WorkerMetrics struct {
	Name         string        `json:"name"`
	Status       WorkerStatus  `json:"status"`
	Concurrency  int           `json:"concurrency"`
	Processed    int64         `json:"processed"`
	Failed       int64         `json:"failed"`
	Uptime       time.Duration `json:"uptime"`
	MemoryUsage  uint64        `json:"memory_usage"`
	LastActivity *time.Time    `json:"last_activity,omitempty"`
}

// SystemHealth aggregates all queue and worker metrics into one overall
// classification.
type SystemHealth struct {
	Overall   HealthStatus             `json:"overall"`
	Queues    map[string]QueueMetrics  `json:"queues"`
	Workers   map[string]WorkerMetrics `json:"workers"`
	SampledAt time.Time                `json:"sampled_at"`
}
