package scaler

import "errors"

var (
	// ErrDependencyNil is returned when a required collaborator is missing.
	ErrDependencyNil = errors.New("backlog source and concurrency adjuster cannot be nil")

	// ErrNoQueues is returned when no queue names are provided.
	ErrNoQueues = errors.New("at least one queue name is required")

	// ErrUnknownQueue is returned for operations on a queue the scaler does not manage.
	ErrUnknownQueue = errors.New("queue is not managed by the scaler")

	// ErrTargetOutOfBounds is returned when a manual scale target violates policy bounds.
	ErrTargetOutOfBounds = errors.New("manual scale target out of policy bounds")

	// ErrScalingInProgress is returned when a manual scale races an automatic scaling check.
	ErrScalingInProgress = errors.New("scaling action already in flight for queue")
)
