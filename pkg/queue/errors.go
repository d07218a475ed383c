package queue

import "errors"

var (
	// ErrStorageNil is returned when a nil storage is provided to a constructor.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload.
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrQueueNameEmpty is returned when a queue name is missing.
	ErrQueueNameEmpty = errors.New("queue name cannot be empty")

	// ErrNoJobToClaim signals an empty queue; it is a normal condition, not a failure.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobNotFound is returned when a job ID does not exist in storage.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotActive is returned when completing or failing a job that is not active.
	ErrJobNotActive = errors.New("job is not in active state")

	// ErrLockNotHeld is returned when extending a claim the worker no longer holds.
	ErrLockNotHeld = errors.New("job lock is not held by this worker")

	// ErrHandlerNil is returned when registering a nil handler.
	ErrHandlerNil = errors.New("handler cannot be nil")

	// ErrProcessorRegistered is returned when a queue already has a processor.
	ErrProcessorRegistered = errors.New("processor already registered for queue")

	// ErrProcessorNotFound is returned for operations on an unregistered queue.
	ErrProcessorNotFound = errors.New("no processor registered for queue")

	// ErrDispatcherStarted is returned when starting an already running dispatcher.
	ErrDispatcherStarted = errors.New("dispatcher already started")

	// ErrDispatcherStopped is returned when stopping a dispatcher that never started.
	ErrDispatcherStopped = errors.New("dispatcher not started")

	// ErrInvalidConcurrency is returned when a concurrency value is below one.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrUnknownDriver is returned when the configured storage driver is not recognized.
	ErrUnknownDriver = errors.New("unknown queue storage driver")
)
