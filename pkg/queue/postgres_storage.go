package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on a PostgreSQL pool. It is the durable
// fallback backend: jobs survive process restarts and claims are serialized
// across processes with row locks.
//
// Schema lives in pkg/queue/migrations and is applied with pg.Migrate.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed storage over an existing pool.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

// Close implements Storage. The pool is owned by the caller and is left open.
func (ps *PostgresStorage) Close() error {
	return nil
}

// CreateJob implements Storage.
func (ps *PostgresStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrPayloadNil
	}
	if job.Queue == "" {
		return ErrQueueNameEmpty
	}

	const q = `
		INSERT INTO queue_jobs (id, queue, payload, status, attempts, available_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := ps.pool.Exec(ctx, q,
		job.ID, job.Queue, job.Payload, job.Status, job.Attempts, job.AvailableAt, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job %s into queue %q: %w", job.ID, job.Queue, err)
	}
	return nil
}

// ClaimJob implements Storage. SKIP LOCKED keeps concurrent claimers from
// blocking on or double-claiming the same row. Active jobs whose lock has
// lapsed belonged to a dead worker (live workers renew through ExtendLock)
// and are reclaimed here, keeping their attempt count.
func (ps *PostgresStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	const q = `
		UPDATE queue_jobs
		SET status = 'active',
		    locked_until = now() + $3,
		    locked_by = $2,
		    started_at = now()
		WHERE id = (
			SELECT id FROM queue_jobs
			WHERE queue = $1
			  AND available_at <= now()
			  AND (status = 'pending'
			       OR (status = 'active' AND locked_until < now()))
			ORDER BY available_at, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, status, attempts, last_error,
		          available_at, locked_until, locked_by, started_at, completed_at, created_at`

	var job Job
	err := ps.pool.QueryRow(ctx, q, queue, workerID, lockDuration).Scan(
		&job.ID, &job.Queue, &job.Payload, &job.Status, &job.Attempts, &job.LastError,
		&job.AvailableAt, &job.LockedUntil, &job.LockedBy, &job.StartedAt, &job.CompletedAt, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobToClaim
		}
		return nil, fmt.Errorf("failed to claim job from queue %q: %w", queue, err)
	}
	return &job, nil
}

// ExtendLock implements Storage.
func (ps *PostgresStorage) ExtendLock(ctx context.Context, workerID, jobID uuid.UUID, lockDuration time.Duration) error {
	const q = `
		UPDATE queue_jobs
		SET locked_until = now() + $3
		WHERE id = $1 AND status = 'active' AND locked_by = $2`

	tag, err := ps.pool.Exec(ctx, q, jobID, workerID, lockDuration)
	if err != nil {
		return fmt.Errorf("failed to extend lock on job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, jobID)
	}
	return nil
}

// CompleteJob implements Storage.
func (ps *PostgresStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	const q = `
		UPDATE queue_jobs
		SET status = 'completed', completed_at = now(), locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'active'`

	tag, err := ps.pool.Exec(ctx, q, jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}
	return nil
}

// FailJob implements Storage.
func (ps *PostgresStorage) FailJob(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	const q = `
		UPDATE queue_jobs
		SET status = 'failed', attempts = attempts + 1, last_error = $2,
		    completed_at = now(), locked_until = NULL, locked_by = NULL
		WHERE id = $1 AND status = 'active'`

	tag, err := ps.pool.Exec(ctx, q, jobID, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}
	return nil
}

// Counts implements Storage.
func (ps *PostgresStorage) Counts(ctx context.Context, queue string) (Counts, error) {
	const q = `
		SELECT
			count(*) FILTER (WHERE status = 'pending' AND available_at <= now()),
			count(*) FILTER (WHERE status = 'active'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'failed'),
			count(*) FILTER (WHERE status = 'pending' AND available_at > now())
		FROM queue_jobs WHERE queue = $1`

	var c Counts
	if err := ps.pool.QueryRow(ctx, q, queue).Scan(&c.Pending, &c.Active, &c.Completed, &c.Failed, &c.Delayed); err != nil {
		return Counts{}, fmt.Errorf("failed to count jobs in queue %q: %w", queue, err)
	}
	return c, nil
}

// WindowStats implements Storage.
func (ps *PostgresStorage) WindowStats(ctx context.Context, queue string, window time.Duration) (WindowStats, error) {
	const q = `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'failed'),
			coalesce(extract(epoch FROM avg(completed_at - started_at)), 0),
			max(completed_at)
		FROM queue_jobs
		WHERE queue = $1
		  AND status IN ('completed', 'failed')
		  AND completed_at >= now() - $2`

	var stats WindowStats
	var avgSeconds float64
	err := ps.pool.QueryRow(ctx, q, queue, window).Scan(
		&stats.TotalJobs, &stats.FailedJobs, &avgSeconds, &stats.LastProcessed)
	if err != nil {
		return WindowStats{}, fmt.Errorf("failed to compute window stats for queue %q: %w", queue, err)
	}

	if stats.TotalJobs > 0 {
		stats.FailureRate = float64(stats.FailedJobs) / float64(stats.TotalJobs)
		stats.AvgProcessing = time.Duration(avgSeconds * float64(time.Second))
	}
	return stats, nil
}

// RetryFailed implements Storage.
func (ps *PostgresStorage) RetryFailed(ctx context.Context, queue string) (int, error) {
	const q = `
		UPDATE queue_jobs
		SET status = 'pending', attempts = 0, available_at = now(),
		    started_at = NULL, completed_at = NULL
		WHERE queue = $1 AND status = 'failed'`

	tag, err := ps.pool.Exec(ctx, q, queue)
	if err != nil {
		return 0, fmt.Errorf("failed to retry failed jobs in queue %q: %w", queue, err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear implements Storage.
func (ps *PostgresStorage) Clear(ctx context.Context, queue string) (int, error) {
	tag, err := ps.pool.Exec(ctx, `DELETE FROM queue_jobs WHERE queue = $1`, queue)
	if err != nil {
		return 0, fmt.Errorf("failed to clear queue %q: %w", queue, err)
	}
	return int(tag.RowsAffected()), nil
}
