package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage is the persistence contract for queued jobs. It is the single
// source of truth for job state: implementations must serialize concurrent
// enqueue, claim, and completion operations so that no two workers ever
// hold the same job.
//
// Delivery is at-least-once. Handlers must be idempotent or detect replays
// through their own durable records.
type Storage interface {
	// CreateJob persists a new job. Safe for concurrent producers.
	CreateJob(ctx context.Context, job *Job) error

	// ClaimJob atomically claims the oldest eligible pending job in the
	// named queue, marking it active and locking it for lockDuration.
	// Returns ErrNoJobToClaim when the queue has no eligible jobs.
	ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error)

	// ExtendLock renews an active job's claim for another lockDuration.
	// Only the worker holding the claim may extend it; anyone else gets
	// ErrLockNotHeld. Dispatchers renew periodically while a handler runs,
	// so a lapsed lock always means a dead worker, never a slow one.
	ExtendLock(ctx context.Context, workerID, jobID uuid.UUID, lockDuration time.Duration) error

	// CompleteJob marks an active job completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID) error

	// FailJob marks an active job failed, recording the error and
	// incrementing the attempt counter. Failed jobs are never retried
	// automatically; recovery goes through RetryFailed.
	FailJob(ctx context.Context, jobID uuid.UUID, errMsg string) error

	// Counts returns the current backlog snapshot for a queue.
	Counts(ctx context.Context, queue string) (Counts, error)

	// WindowStats aggregates completed and failed jobs over the trailing window.
	WindowStats(ctx context.Context, queue string, window time.Duration) (WindowStats, error)

	// RetryFailed moves all failed jobs in the queue back to pending with
	// a reset attempt counter, returning how many were retried.
	RetryFailed(ctx context.Context, queue string) (int, error)

	// Clear removes every job in the named queue. Destructive.
	Clear(ctx context.Context, queue string) (int, error)

	// Close releases storage resources.
	Close() error
}

// Driver identifies a storage backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
)

// NewStorage selects a storage backend from configuration. The pool is
// required only for the postgres driver.
func NewStorage(cfg Config, pool *pgxpool.Pool) (Storage, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryStorage(), nil
	case DriverPostgres:
		return NewPostgresStorage(pool)
	default:
		return nil, ErrUnknownDriver
	}
}
