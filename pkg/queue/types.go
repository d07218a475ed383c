package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of queued work. It is owned exclusively by the Storage
// backend; handlers observe a copy via the dispatch callback and report
// completion or failure back through the Storage API.
//
// A job transitions pending -> active -> (completed | failed). Failed jobs
// re-enter pending only through RetryFailed. A pending job with AvailableAt
// in the future is delayed and not eligible for claiming.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   *string         `json:"last_error,omitempty"`
	AvailableAt time.Time       `json:"available_at"`
	LockedUntil *time.Time      `json:"locked_until,omitempty"`
	LockedBy    *uuid.UUID      `json:"locked_by,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Delayed reports whether the job is waiting out an enqueue delay.
func (j *Job) Delayed(now time.Time) bool {
	return j.Status == JobStatusPending && j.AvailableAt.After(now)
}

// Counts is a point-in-time snapshot of a queue's backlog. Pending covers
// only jobs already eligible for dispatch; jobs still waiting out their
// delay are reported under Delayed.
type Counts struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}

// WindowStats aggregates terminal job outcomes over a trailing time window.
// A window with no terminal jobs has FailureRate 0, never NaN.
type WindowStats struct {
	TotalJobs     int           `json:"total_jobs"`
	FailedJobs    int           `json:"failed_jobs"`
	FailureRate   float64       `json:"failure_rate"`
	AvgProcessing time.Duration `json:"avg_processing"`
	LastProcessed *time.Time    `json:"last_processed,omitempty"`
}
