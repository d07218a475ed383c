package queue

import (
	"context"
	"encoding/json"
)

type (
	// Handler processes jobs dispatched from one queue.
	Handler interface {
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// HandlerFunc adapts a plain function to the Handler interface.
	HandlerFunc func(ctx context.Context, payload json.RawMessage) error
)

func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return f(ctx, payload)
}

// NewHandler wraps a typed processing function in a Handler that decodes
// the job payload into T before invoking it.
func NewHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return HandlerFunc(func(ctx context.Context, payload json.RawMessage) error {
		var t T
		if err := json.Unmarshal(payload, &t); err != nil {
			return err
		}
		return fn(ctx, t)
	})
}
