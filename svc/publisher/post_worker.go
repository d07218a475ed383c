package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilot/engine/pkg/audit"
	"github.com/postpilot/engine/pkg/media"
	"github.com/postpilot/engine/pkg/queue"
)

// PostWorkerDeps are the collaborators a PostWorker needs.
type PostWorkerDeps struct {
	Posts       PostJobRepository
	Accounts    AccountResolver
	Eligibility EligibilityChecker
	Publisher   Publisher
	Media       media.Resolver
	Audit       audit.Logger
	Enqueuer    *queue.Enqueuer
}

func (d PostWorkerDeps) validate() error {
	if d.Posts == nil || d.Accounts == nil || d.Eligibility == nil ||
		d.Publisher == nil || d.Audit == nil || d.Enqueuer == nil {
		return ErrDependencyNil
	}
	return nil
}

// PostWorker processes the post queue: one job, one publish attempt to one
// destination. Every outcome lands on the PostJob record and in the audit
// trail before the queue job is resolved.
type PostWorker struct {
	deps         PostWorkerDeps
	metricsDelay time.Duration
	logger       *slog.Logger
}

// NewPostWorker creates a post worker.
func NewPostWorker(deps PostWorkerDeps, opts ...WorkerOption) (*PostWorker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	options := defaultWorkerOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &PostWorker{
		deps:         deps,
		metricsDelay: options.metricsDelay,
		logger:       options.logger,
	}, nil
}

// Handler returns the queue handler for registration on the post queue.
func (w *PostWorker) Handler() queue.Handler {
	return queue.NewHandler(w.process)
}

func (w *PostWorker) process(ctx context.Context, payload PostJobPayload) error {
	job, err := w.deps.Posts.Get(ctx, payload.PostJobID)
	if err != nil {
		return fmt.Errorf("failed to load post job %s: %w", payload.PostJobID, err)
	}

	// Configuration errors fail fast, before any platform call: without a
	// publishing account a retry has no value until an operator steps in.
	account, err := w.deps.Accounts.Account(ctx, job.UserID, job.Destination)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("failed to resolve publishing account for %s: %w", job.Destination, err))
	}

	elig, err := w.deps.Eligibility.CanPost(ctx, job.UserID, job.Destination)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("eligibility check failed: %w", err))
	}
	if !elig.CanPost {
		// Failing here beats attempting the call and absorbing a
		// platform-side rejection.
		return w.fail(ctx, job, fmt.Errorf("%w: %s", ErrPostingNotAllowed, elig.Reason))
	}

	req := SubmitRequest{
		Destination: job.Destination,
		Title:       job.Title,
		Body:        job.Body,
	}
	if job.MediaKey != "" && w.deps.Media != nil {
		url, err := w.deps.Media.Resolve(ctx, job.MediaKey, job.UserID)
		if err != nil {
			// Partial degradation beats total failure: submit text-only.
			w.logger.Warn("media resolution failed, degrading to text-only post",
				slog.String("post_job_id", job.ID.String()),
				slog.String("media_key", job.MediaKey),
				slog.String("error", err.Error()))
		} else {
			req.MediaURL = url
		}
	}

	res, err := w.deps.Publisher.SubmitPost(ctx, req)
	if err != nil {
		return w.fail(ctx, job, fmt.Errorf("failed to submit post to %s as %s: %w", job.Destination, account.Username, err))
	}

	now := time.Now()
	result := PostResult{
		ExternalPostID: res.PostID,
		URL:            res.URL,
		CompletedAt:    &now,
	}
	if err := w.deps.Posts.MarkSent(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to mark post job %s sent: %w", job.ID, err)
	}

	if err := w.deps.Audit.Log(ctx, job.UserID, "job.completed",
		audit.WithResource("post_job", job.ID.String()),
		audit.WithMetadata(map[string]any{
			"destination":      job.Destination,
			"external_post_id": res.PostID,
		})); err != nil {
		w.logger.Error("failed to write audit event",
			slog.String("post_job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}

	w.scheduleMetrics(ctx, job, res.PostID)

	w.logger.Info("post published",
		slog.String("post_job_id", job.ID.String()),
		slog.String("destination", job.Destination),
		slog.String("external_post_id", res.PostID))
	return nil
}

// fail records the failure on the PostJob, emits the audit event, and
// returns the error so the queue backend marks the underlying job failed.
func (w *PostWorker) fail(ctx context.Context, job *PostJob, cause error) error {
	now := time.Now()
	result := PostResult{
		Error:    cause.Error(),
		FailedAt: &now,
	}
	if err := w.deps.Posts.MarkFailed(ctx, job.ID, result); err != nil {
		w.logger.Error("failed to record post job failure",
			slog.String("post_job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}

	if err := w.deps.Audit.LogError(ctx, job.UserID, "job.failed", cause,
		audit.WithResource("post_job", job.ID.String()),
		audit.WithMetadata(map[string]any{"destination": job.Destination})); err != nil {
		w.logger.Error("failed to write audit event",
			slog.String("post_job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}

	return cause
}

// scheduleMetrics enqueues the deferred metrics-collection job. Failure to
// schedule never fails the publish: the post is already live.
func (w *PostWorker) scheduleMetrics(ctx context.Context, job *PostJob, externalPostID string) {
	_, err := w.deps.Enqueuer.AddJob(ctx, QueueMetrics, MetricsPayload{
		PostJobID:      job.ID,
		UserID:         job.UserID,
		Destination:    job.Destination,
		ExternalPostID: externalPostID,
	}, queue.WithDelay(w.metricsDelay))
	if err != nil {
		w.logger.Error("failed to schedule metrics collection",
			slog.String("post_job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}
