package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enqueuer is the single entry point producers use to add jobs to named
// queues. It routes a payload to a queue, optionally delaying dispatch.
type Enqueuer struct {
	storage Storage
}

// NewEnqueuer creates a new Enqueuer over the given storage.
func NewEnqueuer(storage Storage) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &Enqueuer{storage: storage}, nil
}

// AddJob persists a job to the named queue and returns its ID. With
// WithDelay the job becomes eligible for dispatch only after the delay
// elapses. Safe for concurrent producers.
func (e *Enqueuer) AddJob(ctx context.Context, queue string, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if queue == "" {
		return uuid.Nil, ErrQueueNameEmpty
	}
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	options := &enqueueOptions{}
	for _, opt := range opts {
		opt(options)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal payload of type %T: %w", payload, err)
	}

	now := time.Now()
	availableAt := now
	if options.availableAt != nil {
		availableAt = *options.availableAt
	} else if options.delay > 0 {
		availableAt = now.Add(options.delay)
	}

	job := &Job{
		ID:          uuid.New(),
		Queue:       queue,
		Payload:     payloadBytes,
		Status:      JobStatusPending,
		AvailableAt: availableAt,
		CreatedAt:   now,
	}

	if err := e.storage.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job in queue %q: %w", queue, err)
	}
	return job.ID, nil
}

// QueueHealthEntry is the per-queue read model behind operational dashboards.
type QueueHealthEntry struct {
	Pending     int     `json:"pending"`
	FailureRate float64 `json:"failure_rate"`
	TotalJobs   int     `json:"total_jobs"`
	FailedJobs  int     `json:"failed_jobs"`
}

// QueueHealth reports backlog and trailing-hour failure figures for the
// named queues.
func (e *Enqueuer) QueueHealth(ctx context.Context, queues ...string) (map[string]QueueHealthEntry, error) {
	health := make(map[string]QueueHealthEntry, len(queues))
	for _, q := range queues {
		counts, err := e.storage.Counts(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to read counts for queue %q: %w", q, err)
		}
		stats, err := e.storage.WindowStats(ctx, q, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("failed to read stats for queue %q: %w", q, err)
		}
		health[q] = QueueHealthEntry{
			Pending:     counts.Pending,
			FailureRate: stats.FailureRate,
			TotalJobs:   stats.TotalJobs,
			FailedJobs:  stats.FailedJobs,
		}
	}
	return health, nil
}
