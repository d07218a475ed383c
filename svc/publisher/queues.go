package publisher

import (
	"time"

	"github.com/postpilot/engine/pkg/scaler"
)

// Named queues owned by the publishing core. The dunning queue is consumed
// by billing elsewhere; only the name lives here so producers and the
// monitor agree on it.
const (
	QueuePost    = "post"
	QueueBatch   = "batch-post"
	QueueMetrics = "metrics"
	QueuePromo   = "ai-promo"
	QueueDunning = "dunning"
)

// Queues lists every queue the monitor and scaler should track.
func Queues() []string {
	return []string{QueuePost, QueueBatch, QueueMetrics, QueuePromo, QueueDunning}
}

// DefaultScalingPolicy is the baseline policy applied to every queue
// without an override.
func DefaultScalingPolicy() scaler.Policy {
	return scaler.Policy{
		MinConcurrency:   1,
		MaxConcurrency:   5,
		ScaleUpThreshold: 10,
		ScaleDownIdle:    2 * time.Minute,
		Cooldown:         2 * time.Minute,
	}
}

// ScalingOverrides returns the per-queue policy exceptions.
//
// The batch-post queue is pinned to a single worker with an unreachable
// scale-up threshold: a campaign already serializes its own destinations,
// and destination platforms rate-limit by account, so parallel campaigns
// for the same account would only trade backlog for rejections.
func ScalingOverrides() map[string]scaler.Policy {
	return map[string]scaler.Policy{
		QueueBatch: {
			MinConcurrency:   1,
			MaxConcurrency:   1,
			ScaleUpThreshold: int(^uint(0) >> 1),
			ScaleDownIdle:    2 * time.Minute,
			Cooldown:         2 * time.Minute,
		},
		QueuePromo: {
			MinConcurrency:   1,
			MaxConcurrency:   2,
			ScaleUpThreshold: 20,
			ScaleDownIdle:    5 * time.Minute,
			Cooldown:         5 * time.Minute,
		},
	}
}
