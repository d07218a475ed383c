package publisher

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option shared by the publishing workers.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	metricsDelay      time.Duration
	delayBetweenPosts time.Duration
	variantDelay      time.Duration
	logger            *slog.Logger
}

func defaultWorkerOptions() *workerOptions {
	return &workerOptions{
		metricsDelay:      time.Hour,
		delayBetweenPosts: 5 * time.Minute,
		variantDelay:      2 * time.Second,
		logger:            slog.Default(),
	}
}

// WithMetricsDelay sets how long after a successful publish the metrics
// collection job runs.
func WithMetricsDelay(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.metricsDelay = d
		}
	}
}

// WithDelayBetweenPosts sets the default inter-destination delay for batch
// campaigns. A campaign payload may override it.
func WithDelayBetweenPosts(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.delayBetweenPosts = d
		}
	}
}

// WithVariantDelay sets the pause between AI generation calls.
func WithVariantDelay(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.variantDelay = d
		}
	}
}

// WithWorkerLogger sets the logger for a worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
