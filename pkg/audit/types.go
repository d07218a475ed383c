package audit

import (
	"fmt"
	"time"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is a single audit log entry. Workers emit one per job outcome
// (job.completed, job.failed, batch_post.completed, ai_promo.*) so operators
// can reconstruct what happened to a publish attempt without replaying logs.
type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithResource attaches the affected resource type and ID.
func WithResource(resource, resourceID string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = resourceID
	}
}

// WithMetadata merges additional key-value context into the event.
func WithMetadata(metadata map[string]any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}
