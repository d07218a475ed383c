package publisher

import (
	"time"

	"github.com/google/uuid"
)

// PostJobStatus is the lifecycle state of a durable publish attempt.
type PostJobStatus string

const (
	PostJobPending PostJobStatus = "pending"
	PostJobSent    PostJobStatus = "sent"
	PostJobFailed  PostJobStatus = "failed"
)

// PostResult is the durable outcome of a publish attempt, stored alongside
// the PostJob so operators can diagnose and re-trigger without replaying the
// job payload from logs.
type PostResult struct {
	ExternalPostID string           `json:"external_post_id,omitempty"`
	URL            string           `json:"url,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	Error          string           `json:"error,omitempty"`
	FailedAt       *time.Time       `json:"failed_at,omitempty"`
	Metrics        map[string]int64 `json:"metrics,omitempty"`
	CollectedAt    *time.Time       `json:"collected_at,omitempty"`
}

// PostJob is the durable business record of a single publish attempt. It is
// distinct from the transient queue job: the queue backend tracks dispatch
// bookkeeping, the PostJob is the audit trail that outlives it.
type PostJob struct {
	ID          uuid.UUID     `json:"id"`
	UserID      string        `json:"user_id"`
	Destination string        `json:"destination"`
	Title       string        `json:"title"`
	Body        string        `json:"body,omitempty"`
	MediaKey    string        `json:"media_key,omitempty"`
	CampaignID  *uuid.UUID    `json:"campaign_id,omitempty"`
	Status      PostJobStatus `json:"status"`
	Result      PostResult    `json:"result"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Account is a user's publishing account for one destination platform.
type Account struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Destination string    `json:"destination"`
	Username    string    `json:"username"`
}

// Eligibility is the outcome of a posting policy gate.
type Eligibility struct {
	CanPost bool   `json:"can_post"`
	Reason  string `json:"reason,omitempty"`
}

// SubmitRequest is the call contract for handing content to the external
// publishing API.
type SubmitRequest struct {
	Destination string          `json:"destination"`
	Title       string          `json:"title"`
	Body        string          `json:"body,omitempty"`
	MediaURL    string          `json:"media_url,omitempty"`
	Flags       map[string]bool `json:"flags,omitempty"`
}

// SubmitResult carries the platform-side identifiers of a successful submission.
type SubmitResult struct {
	PostID string `json:"post_id"`
	URL    string `json:"url,omitempty"`
}

// DestinationStatus classifies one destination's outcome within a batch campaign.
type DestinationStatus string

const (
	DestinationSent    DestinationStatus = "sent"
	DestinationFailed  DestinationStatus = "failed"
	DestinationSkipped DestinationStatus = "skipped"
)

// DestinationResult is one entry in a batch campaign's per-destination
// result list. A failed destination never prevents attempts on the
// destinations after it.
type DestinationResult struct {
	Destination string            `json:"destination"`
	Status      DestinationStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	PostJobID   uuid.UUID         `json:"post_job_id,omitempty"`
	PostID      string            `json:"post_id,omitempty"`
	URL         string            `json:"url,omitempty"`
}

// PostJobPayload is the queue payload for the post worker.
type PostJobPayload struct {
	PostJobID uuid.UUID `json:"post_job_id"`
	UserID    string    `json:"user_id"`
}

// BatchPayload is the queue payload for the batch posting worker: one
// campaign fanned out to an ordered list of destinations.
type BatchPayload struct {
	CampaignID        uuid.UUID     `json:"campaign_id"`
	UserID            string        `json:"user_id"`
	Destinations      []string      `json:"destinations"`
	Title             string        `json:"title"`
	Body              string        `json:"body,omitempty"`
	MediaKey          string        `json:"media_key,omitempty"`
	DelayBetweenPosts time.Duration `json:"delay_between_posts,omitempty"`
}

// PromoPayload is the queue payload for the AI promo worker.
type PromoPayload struct {
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       string    `json:"user_id"`
	Prompt       string    `json:"prompt"`
	Variants     int       `json:"variants"`
}

// MetricsPayload is the queue payload for the deferred metrics collection
// scheduled an hour after a successful publish.
type MetricsPayload struct {
	PostJobID      uuid.UUID `json:"post_job_id"`
	UserID         string    `json:"user_id"`
	Destination    string    `json:"destination"`
	ExternalPostID string    `json:"external_post_id"`
}
