// Package cooldown enforces a minimum interval between repeated actions on
// the same key, such as posts to the same destination account.
//
// A Gate allows the first action for a key and blocks further actions until
// the window elapses. State lives behind the Store interface: in process
// memory for tests, or in Redis so cooldowns survive restarts and are shared
// across worker processes.
package cooldown

import (
	"context"
	"time"
)

// Result reports the outcome of a gate check.
type Result struct {
	Allowed    bool          // whether the action may proceed
	RetryAfter time.Duration // how long until the key is allowed again; 0 when Allowed
}

// Store persists per-key cooldown state.
type Store interface {
	// Acquire attempts to start the cooldown window for the key. It returns
	// true and starts the window if the key is not cooling down; otherwise
	// it returns false with the remaining wait.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)

	// Reset clears the cooldown state for the key.
	Reset(ctx context.Context, key string) error
}

// Gate applies a fixed cooldown window per key.
type Gate struct {
	store  Store
	window time.Duration
}

// NewGate creates a gate with the given window.
func NewGate(store Store, window time.Duration) (*Gate, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &Gate{store: store, window: window}, nil
}

// Allow checks and, when permitted, consumes the key's cooldown slot.
func (g *Gate) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	allowed, retryAfter, err := g.store.Acquire(ctx, key, g.window)
	if err != nil {
		return nil, err
	}
	return &Result{Allowed: allowed, RetryAfter: retryAfter}, nil
}

// Reset clears the cooldown for a key, re-allowing immediate action.
func (g *Gate) Reset(ctx context.Context, key string) error {
	return g.store.Reset(ctx, key)
}

// Window returns the configured cooldown window.
func (g *Gate) Window() time.Duration {
	return g.window
}
