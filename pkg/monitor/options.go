package monitor

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Monitor.
type Option func(*monitorOptions)

type monitorOptions struct {
	interval time.Duration
	window   time.Duration
	logger   *slog.Logger
}

// WithInterval sets the sampling interval.
func WithInterval(d time.Duration) Option {
	return func(o *monitorOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithWindow sets the trailing window for failure rate and throughput.
func WithWindow(d time.Duration) Option {
	return func(o *monitorOptions) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithLogger sets the logger for the monitor.
func WithLogger(logger *slog.Logger) Option {
	return func(o *monitorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
