package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilot/engine/pkg/audit"
	"github.com/postpilot/engine/pkg/queue"
)

// PromoWorkerDeps are the collaborators a PromoWorker needs.
type PromoWorkerDeps struct {
	Contents  ContentRepository
	Generator Generator
	Audit     audit.Logger
}

func (d PromoWorkerDeps) validate() error {
	if d.Contents == nil || d.Generator == nil || d.Audit == nil {
		return ErrDependencyNil
	}
	return nil
}

// PromoWorker processes the ai-promo queue: it generates content variants
// sequentially with a fixed pause between calls, respecting the generation
// provider's throughput limits.
type PromoWorker struct {
	deps         PromoWorkerDeps
	variantDelay time.Duration
	logger       *slog.Logger

	sleep func(time.Duration) // replaced in tests
}

// NewPromoWorker creates an AI promo worker.
func NewPromoWorker(deps PromoWorkerDeps, opts ...WorkerOption) (*PromoWorker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	options := defaultWorkerOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &PromoWorker{
		deps:         deps,
		variantDelay: options.variantDelay,
		logger:       options.logger,
		sleep:        time.Sleep,
	}, nil
}

// Handler returns the queue handler for registration on the ai-promo queue.
func (w *PromoWorker) Handler() queue.Handler {
	return queue.NewHandler(w.process)
}

func (w *PromoWorker) process(ctx context.Context, payload PromoPayload) error {
	if payload.Variants < 1 || payload.Variants > 5 {
		return w.fail(ctx, payload, fmt.Errorf("%w: got %d", ErrInvalidVariantCount, payload.Variants))
	}

	variants := make([]string, 0, payload.Variants)
	for i := 1; i <= payload.Variants; i++ {
		content, err := w.deps.Generator.Generate(ctx, payload.Prompt, i)
		if err != nil {
			return w.fail(ctx, payload, fmt.Errorf("failed to generate variant %d of %d: %w", i, payload.Variants, err))
		}
		variants = append(variants, content)

		if i < payload.Variants {
			w.sleep(w.variantDelay)
		}
	}

	if err := w.deps.Contents.MarkCompleted(ctx, payload.GenerationID, variants[0]); err != nil {
		return w.fail(ctx, payload, fmt.Errorf("failed to store generated content: %w", err))
	}

	if err := w.deps.Audit.Log(ctx, payload.UserID, "ai_promo.completed",
		audit.WithResource("content_generation", payload.GenerationID.String()),
		audit.WithMetadata(map[string]any{"variants": len(variants)})); err != nil {
		w.logger.Error("failed to write audit event",
			slog.String("generation_id", payload.GenerationID.String()),
			slog.String("error", err.Error()))
	}

	w.logger.Info("promo content generated",
		slog.String("generation_id", payload.GenerationID.String()),
		slog.Int("variants", len(variants)))
	return nil
}

// fail marks the generation record failed, emits the audit event, and
// returns the error so the queue job is marked failed.
func (w *PromoWorker) fail(ctx context.Context, payload PromoPayload, cause error) error {
	if err := w.deps.Contents.MarkFailed(ctx, payload.GenerationID, cause.Error()); err != nil {
		w.logger.Error("failed to record generation failure",
			slog.String("generation_id", payload.GenerationID.String()),
			slog.String("error", err.Error()))
	}

	if err := w.deps.Audit.LogError(ctx, payload.UserID, "ai_promo.failed", cause,
		audit.WithResource("content_generation", payload.GenerationID.String())); err != nil {
		w.logger.Error("failed to write audit event",
			slog.String("generation_id", payload.GenerationID.String()),
			slog.String("error", err.Error()))
	}

	return cause
}
