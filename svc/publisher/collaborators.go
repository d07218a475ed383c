package publisher

import (
	"context"

	"github.com/google/uuid"
)

// Publisher is the external publishing API. Implementations live outside
// this core; workers only depend on the call contract.
type Publisher interface {
	// SubmitPost hands one piece of content to the destination platform.
	// Platform-side rejections are returned as errors.
	SubmitPost(ctx context.Context, req SubmitRequest) (*SubmitResult, error)

	// PostStats fetches engagement metrics for a previously published post.
	PostStats(ctx context.Context, destination, externalPostID string) (map[string]int64, error)
}

// AccountResolver finds a user's publishing account for a destination.
// Returns ErrNoPublishingAccount when the user has none.
type AccountResolver interface {
	Account(ctx context.Context, userID, destination string) (*Account, error)
}

// EligibilityChecker is the policy gate evaluated before every publish
// attempt. A denial carries a human-readable reason.
type EligibilityChecker interface {
	CanPost(ctx context.Context, userID, destination string) (Eligibility, error)
}

// PostJobRepository persists PostJob records: the durable audit trail of
// publish attempts, independent of the queue backend's own bookkeeping.
type PostJobRepository interface {
	Create(ctx context.Context, job *PostJob) error
	Get(ctx context.Context, id uuid.UUID) (*PostJob, error)
	MarkSent(ctx context.Context, id uuid.UUID, result PostResult) error
	MarkFailed(ctx context.Context, id uuid.UUID, result PostResult) error
	SetMetrics(ctx context.Context, id uuid.UUID, metrics map[string]int64) error
}

// ContentRepository persists the content-generation record the AI promo
// worker writes back to.
type ContentRepository interface {
	MarkCompleted(ctx context.Context, id uuid.UUID, content string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Generator is the external content-generation API consumed by the AI
// promo worker. The variant index is 1-based.
type Generator interface {
	Generate(ctx context.Context, prompt string, variant int) (string, error)
}
