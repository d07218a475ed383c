package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// Logger records audit events for a user. Every failure path in the workers
// goes through LogError so a durable diagnostic record always exists.
type Logger interface {
	Log(ctx context.Context, userID, action string, opts ...EventOption) error
	LogError(ctx context.Context, userID, action string, err error, opts ...EventOption) error
}

type logger struct {
	storage Storage
}

// NewLogger creates a new audit logger over the given storage.
func NewLogger(storage Storage) (Logger, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &logger{storage: storage}, nil
}

// Log records a successful action.
func (l *logger) Log(ctx context.Context, userID, action string, opts ...EventOption) error {
	event := Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Result:    ResultSuccess,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, event)
}

// LogError records a failed action.
func (l *logger) LogError(ctx context.Context, userID, action string, cause error, opts ...EventOption) error {
	event := Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Result:    ResultFailure,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, event)
}
