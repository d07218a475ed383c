package queue

import (
	"log/slog"
	"time"
)

// DispatcherOption is a functional option for configuring a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	pullInterval  time.Duration
	lockTimeout   time.Duration
	shutdownGrace time.Duration
	logger        *slog.Logger
}

// WithPullInterval sets how often each queue loop checks for eligible jobs.
func WithPullInterval(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLockTimeout sets the claim lock window. A live worker renews the lock
// every half window while its handler runs, so the window bounds how long a
// crashed worker's job stays stuck, not how long a handler may take.
func WithLockTimeout(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithShutdownGrace bounds how long Close waits for in-flight handlers.
func WithShutdownGrace(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.shutdownGrace = d
		}
	}
}

// WithDispatcherLogger sets the logger for the dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
