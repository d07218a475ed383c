package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/postpilot/engine/pkg/audit"
	"github.com/postpilot/engine/pkg/media"
	"github.com/postpilot/engine/pkg/queue"
)

// BatchWorkerDeps are the collaborators a BatchWorker needs.
type BatchWorkerDeps struct {
	Posts       PostJobRepository
	Accounts    AccountResolver
	Eligibility EligibilityChecker
	Publisher   Publisher
	Media       media.Resolver
	Audit       audit.Logger
	Enqueuer    *queue.Enqueuer
}

func (d BatchWorkerDeps) validate() error {
	if d.Posts == nil || d.Accounts == nil || d.Eligibility == nil ||
		d.Publisher == nil || d.Audit == nil || d.Enqueuer == nil {
		return ErrDependencyNil
	}
	return nil
}

// BatchWorker fans one campaign out to an ordered list of destinations with
// exactly one submission in flight at a time. Destinations are rate-limited
// by account, not by campaign, so the worker sleeps between posts and is
// never parallelized (the batch-post queue is pinned to concurrency 1).
//
// The unit of success is the destination, not the campaign: a failure on
// one destination is recorded and the loop continues. The campaign-level
// job fails only when the whole invocation cannot proceed at all.
type BatchWorker struct {
	deps              BatchWorkerDeps
	delayBetweenPosts time.Duration
	metricsDelay      time.Duration
	logger            *slog.Logger

	sleep func(time.Duration) // replaced in tests
}

// NewBatchWorker creates a batch posting worker.
func NewBatchWorker(deps BatchWorkerDeps, opts ...WorkerOption) (*BatchWorker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	options := defaultWorkerOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &BatchWorker{
		deps:              deps,
		delayBetweenPosts: options.delayBetweenPosts,
		metricsDelay:      options.metricsDelay,
		logger:            options.logger,
		sleep:             time.Sleep,
	}, nil
}

// Handler returns the queue handler for registration on the batch-post queue.
func (w *BatchWorker) Handler() queue.Handler {
	return queue.NewHandler(w.process)
}

func (w *BatchWorker) process(ctx context.Context, payload BatchPayload) error {
	if len(payload.Destinations) == 0 {
		return ErrNoDestinations
	}

	// A campaign with no valid publishing account anywhere is a
	// configuration error: fail the whole invocation before touching
	// any destination.
	accounts, err := w.resolveAccounts(ctx, payload)
	if err != nil {
		if auditErr := w.deps.Audit.LogError(ctx, payload.UserID, "batch_post.failed", err,
			audit.WithResource("campaign", payload.CampaignID.String())); auditErr != nil {
			w.logger.Error("failed to write audit event",
				slog.String("campaign_id", payload.CampaignID.String()),
				slog.String("error", auditErr.Error()))
		}
		return err
	}

	delay := payload.DelayBetweenPosts
	if delay <= 0 {
		delay = w.delayBetweenPosts
	}

	results := make([]DestinationResult, 0, len(payload.Destinations))
	for i, destination := range payload.Destinations {
		if _, ok := accounts[destination]; !ok {
			results = append(results, DestinationResult{
				Destination: destination,
				Status:      DestinationFailed,
				Reason:      ErrNoPublishingAccount.Error(),
			})
			continue
		}

		elig, err := w.deps.Eligibility.CanPost(ctx, payload.UserID, destination)
		if err != nil || !elig.CanPost {
			reason := elig.Reason
			if err != nil {
				reason = err.Error()
			}
			results = append(results, DestinationResult{
				Destination: destination,
				Status:      DestinationSkipped,
				Reason:      reason,
			})
			continue
		}

		results = append(results, w.postTo(ctx, payload, destination))

		// The inter-post delay holds only between attempts; a started
		// campaign runs to completion and is interrupted only by process
		// shutdown.
		if i < len(payload.Destinations)-1 {
			w.sleep(delay)
		}
	}

	sent, failed, skipped := tally(results)
	if err := w.deps.Audit.Log(ctx, payload.UserID, "batch_post.completed",
		audit.WithResource("campaign", payload.CampaignID.String()),
		audit.WithMetadata(map[string]any{
			"results": results,
			"sent":    sent,
			"failed":  failed,
			"skipped": skipped,
		})); err != nil {
		w.logger.Error("failed to write audit event",
			slog.String("campaign_id", payload.CampaignID.String()),
			slog.String("error", err.Error()))
	}

	w.logger.Info("batch campaign completed",
		slog.String("campaign_id", payload.CampaignID.String()),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Int("skipped", skipped))
	return nil
}

// resolveAccounts maps each destination to the user's publishing account,
// failing only when no destination has one.
func (w *BatchWorker) resolveAccounts(ctx context.Context, payload BatchPayload) (map[string]*Account, error) {
	accounts := make(map[string]*Account, len(payload.Destinations))
	for _, destination := range payload.Destinations {
		account, err := w.deps.Accounts.Account(ctx, payload.UserID, destination)
		if err != nil {
			continue
		}
		accounts[destination] = account
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: campaign %s has no usable destination", ErrNoPublishingAccount, payload.CampaignID)
	}
	return accounts, nil
}

// postTo publishes the campaign to one destination, creating and settling
// its durable PostJob row. Errors are captured in the result, never thrown.
func (w *BatchWorker) postTo(ctx context.Context, payload BatchPayload, destination string) DestinationResult {
	now := time.Now()
	title := customizeTitle(payload.Title, destination)
	job := &PostJob{
		ID:          uuid.New(),
		UserID:      payload.UserID,
		Destination: destination,
		Title:       title,
		Body:        customizeBody(payload.Body, title, destination),
		MediaKey:    payload.MediaKey,
		CampaignID:  &payload.CampaignID,
		Status:      PostJobPending,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.deps.Posts.Create(ctx, job); err != nil {
		return DestinationResult{
			Destination: destination,
			Status:      DestinationFailed,
			Reason:      fmt.Sprintf("failed to create post job: %v", err),
		}
	}

	req := SubmitRequest{
		Destination: destination,
		Title:       job.Title,
		Body:        job.Body,
	}
	if job.MediaKey != "" && w.deps.Media != nil {
		if url, err := w.deps.Media.Resolve(ctx, job.MediaKey, job.UserID); err != nil {
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
		failedAt := time.Now()
		if markErr := w.deps.Posts.MarkFailed(ctx, job.ID, PostResult{Error: err.Error(), FailedAt: &failedAt}); markErr != nil {
			w.logger.Error("failed to record post job failure",
				slog.String("post_job_id", job.ID.String()),
				slog.String("error", markErr.Error()))
		}
		return DestinationResult{
			Destination: destination,
			Status:      DestinationFailed,
			Reason:      err.Error(),
			PostJobID:   job.ID,
		}
	}

	completedAt := time.Now()
	if err := w.deps.Posts.MarkSent(ctx, job.ID, PostResult{
		ExternalPostID: res.PostID,
		URL:            res.URL,
		CompletedAt:    &completedAt,
	}); err != nil {
		w.logger.Error("failed to record post job success",
			slog.String("post_job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}

	w.scheduleMetrics(ctx, job, res.PostID)

	return DestinationResult{
		Destination: destination,
		Status:      DestinationSent,
		PostJobID:   job.ID,
		PostID:      res.PostID,
		URL:         res.URL,
	}
}

func (w *BatchWorker) scheduleMetrics(ctx context.Context, job *PostJob, externalPostID string) {
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

func tally(results []DestinationResult) (sent, failed, skipped int) {
	for _, r := range results {
		switch r.Status {
		case DestinationSent:
			sent++
		case DestinationFailed:
			failed++
		case DestinationSkipped:
			skipped++
		}
	}
	return sent, failed, skipped
}
