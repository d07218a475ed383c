package queue

import "time"

// EnqueueOption is a functional option for the AddJob method.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	delay       time.Duration
	availableAt *time.Time
}

// WithDelay defers dispatch eligibility by the given duration.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithAvailableAt sets an absolute dispatch eligibility time. Takes
// precedence over WithDelay when both are given.
func WithAvailableAt(at time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.availableAt = &at
	}
}
