package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postpilot/engine/pkg/queue"
)

// MetricsWorker processes the metrics queue: deferred engagement collection
// for posts published an hour earlier. It only reads from the platform and
// writes onto the PostJob record, never back to the queue.
type MetricsWorker struct {
	posts     PostJobRepository
	publisher Publisher
	logger    *slog.Logger
}

// NewMetricsWorker creates a metrics collection worker.
func NewMetricsWorker(posts PostJobRepository, pub Publisher, opts ...WorkerOption) (*MetricsWorker, error) {
	if posts == nil || pub == nil {
		return nil, ErrDependencyNil
	}

	options := defaultWorkerOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &MetricsWorker{
		posts:     posts,
		publisher: pub,
		logger:    options.logger,
	}, nil
}

// Handler returns the queue handler for registration on the metrics queue.
func (w *MetricsWorker) Handler() queue.Handler {
	return queue.NewHandler(w.process)
}

func (w *MetricsWorker) process(ctx context.Context, payload MetricsPayload) error {
	stats, err := w.publisher.PostStats(ctx, payload.Destination, payload.ExternalPostID)
	if err != nil {
		return fmt.Errorf("failed to fetch stats for post %s on %s: %w",
			payload.ExternalPostID, payload.Destination, err)
	}

	if err := w.posts.SetMetrics(ctx, payload.PostJobID, stats); err != nil {
		return fmt.Errorf("failed to store metrics for post job %s: %w", payload.PostJobID, err)
	}

	w.logger.Info("post metrics collected",
		slog.String("post_job_id", payload.PostJobID.String()),
		slog.String("destination", payload.Destination))
	return nil
}
