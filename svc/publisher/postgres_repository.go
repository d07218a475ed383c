package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPostJobRepository implements PostJobRepository on a PostgreSQL
// pool. PostJobs are the durable audit trail of publish attempts, so this
// is the backend production deployments use.
//
// Schema lives in svc/publisher/migrations and is applied with pg.Migrate.
type PostgresPostJobRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPostJobRepository creates a Postgres-backed repository over an
// existing pool. The pool is owned by the caller.
func NewPostgresPostJobRepository(pool *pgxpool.Pool) (*PostgresPostJobRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: pgx pool", ErrDependencyNil)
	}
	return &PostgresPostJobRepository{pool: pool}, nil
}

// Create implements PostJobRepository.
func (r *PostgresPostJobRepository) Create(ctx context.Context, job *PostJob) error {
	const q = `
		INSERT INTO post_jobs (id, user_id, destination, title, body, media_key,
		                       campaign_id, status, result, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, q,
		job.ID, job.UserID, job.Destination, job.Title, job.Body, job.MediaKey,
		job.CampaignID, job.Status, job.Result, job.ScheduledAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post job %s: %w", job.ID, err)
	}
	return nil
}

// Get implements PostJobRepository.
func (r *PostgresPostJobRepository) Get(ctx context.Context, id uuid.UUID) (*PostJob, error) {
	const q = `
		SELECT id, user_id, destination, title, body, media_key,
		       campaign_id, status, result, scheduled_at, created_at, updated_at
		FROM post_jobs WHERE id = $1`

	var job PostJob
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID, &job.UserID, &job.Destination, &job.Title, &job.Body, &job.MediaKey,
		&job.CampaignID, &job.Status, &job.Result, &job.ScheduledAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to load post job %s: %w", id, err)
	}
	return &job, nil
}

// MarkSent implements PostJobRepository.
func (r *PostgresPostJobRepository) MarkSent(ctx context.Context, id uuid.UUID, result PostResult) error {
	return r.update(ctx, id, PostJobSent, result)
}

// MarkFailed implements PostJobRepository.
func (r *PostgresPostJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, result PostResult) error {
	return r.update(ctx, id, PostJobFailed, result)
}

// SetMetrics implements PostJobRepository. Metrics land inside the result
// JSON so the row keeps a single source of truth for the attempt's outcome.
func (r *PostgresPostJobRepository) SetMetrics(ctx context.Context, id uuid.UUID, metrics map[string]int64) error {
	const q = `
		UPDATE post_jobs
		SET result = result || jsonb_build_object('metrics', $2::jsonb, 'collected_at', now()),
		    updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, id, metrics)
	if err != nil {
		return fmt.Errorf("failed to set metrics on post job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
	}
	return nil
}

func (r *PostgresPostJobRepository) update(ctx context.Context, id uuid.UUID, status PostJobStatus, result PostResult) error {
	const q = `
		UPDATE post_jobs
		SET status = $2, result = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q, id, status, result)
	if err != nil {
		return fmt.Errorf("failed to update post job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
	}
	return nil
}
