package scaler

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Scaler.
type Option func(*scalerOptions)

type scalerOptions struct {
	interval  time.Duration
	defaults  Policy
	overrides map[string]Policy
	logger    *slog.Logger
}

// WithInterval sets how often the scaling check runs.
func WithInterval(d time.Duration) Option {
	return func(o *scalerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithDefaultPolicy replaces the default per-queue policy.
func WithDefaultPolicy(p Policy) Option {
	return func(o *scalerOptions) {
		o.defaults = p
	}
}

// WithPolicyOverride layers a queue-specific policy over the defaults.
func WithPolicyOverride(queue string, p Policy) Option {
	return func(o *scalerOptions) {
		if queue != "" {
			o.overrides[queue] = p
		}
	}
}

// WithLogger sets the logger for the scaler.
func WithLogger(logger *slog.Logger) Option {
	return func(o *scalerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
