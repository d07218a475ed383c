package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage in process memory. It backs local
// development and tests, and doubles as the fast backend where durability
// across restarts is not required.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	// Indexes for efficient queries
	byQueue  map[string][]uuid.UUID
	byStatus map[JobStatus][]uuid.UUID

	// Lock management
	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		jobs:     make(map[uuid.UUID]*Job),
		byQueue:  make(map[string][]uuid.UUID),
		byStatus: make(map[JobStatus][]uuid.UUID),
		done:     make(chan struct{}),
	}

	// Recover jobs abandoned by crashed handlers.
	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationLoop()

	return ms
}

// Close stops the background lock expiration goroutine.
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateJob implements Storage.
func (ms *MemoryStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrPayloadNil
	}
	if job.Queue == "" {
		return ErrQueueNameEmpty
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}

	// Clone to prevent external modifications after enqueue.
	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy

	ms.byQueue[job.Queue] = append(ms.byQueue[job.Queue], job.ID)
	ms.byStatus[job.Status] = append(ms.byStatus[job.Status], job.ID)

	return nil
}

// ClaimJob implements Storage. Eligible jobs are claimed roughly in enqueue
// order; jobs still waiting out their delay are skipped.
func (ms *MemoryStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var oldest *Job

	for _, jobID := range ms.byStatus[JobStatusPending] {
		job := ms.jobs[jobID]

		if job.Queue != queue {
			continue
		}
		if job.AvailableAt.After(now) {
			continue
		}
		if job.LockedUntil != nil && job.LockedUntil.After(now) {
			continue
		}

		if oldest == nil || job.AvailableAt.Before(oldest.AvailableAt) {
			oldest = job
		}
	}

	if oldest == nil {
		return nil, ErrNoJobToClaim
	}

	lockUntil := now.Add(lockDuration)
	oldest.Status = JobStatusActive
	oldest.LockedUntil = &lockUntil
	oldest.LockedBy = &workerID
	oldest.StartedAt = &now

	ms.removeFromStatusIndex(oldest.ID, JobStatusPending)
	ms.byStatus[JobStatusActive] = append(ms.byStatus[JobStatusActive], oldest.ID)

	jobCopy := *oldest
	return &jobCopy, nil
}

// ExtendLock implements Storage.
func (ms *MemoryStorage) ExtendLock(ctx context.Context, workerID, jobID uuid.UUID, lockDuration time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != JobStatusActive {
		return fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}
	if job.LockedBy == nil || *job.LockedBy != workerID {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, jobID)
	}

	lockUntil := time.Now().Add(lockDuration)
	job.LockedUntil = &lockUntil
	return nil
}

// CompleteJob implements Storage.
func (ms *MemoryStorage) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != JobStatusActive {
		return fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, JobStatusActive)
	ms.byStatus[JobStatusCompleted] = append(ms.byStatus[JobStatusCompleted], jobID)

	return nil
}

// FailJob implements Storage. The job stays failed until an operator calls
// RetryFailed; there is no automatic retry.
func (ms *MemoryStorage) FailJob(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, exists := ms.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != JobStatusActive {
		return fmt.Errorf("%w: %s", ErrJobNotActive, jobID)
	}

	now := time.Now()
	job.Status = JobStatusFailed
	job.Attempts++
	job.LastError = &errMsg
	job.CompletedAt = &now
	job.LockedUntil = nil
	job.LockedBy = nil

	ms.removeFromStatusIndex(jobID, JobStatusActive)
	ms.byStatus[JobStatusFailed] = append(ms.byStatus[JobStatusFailed], jobID)

	return nil
}

// Counts implements Storage.
func (ms *MemoryStorage) Counts(ctx context.Context, queue string) (Counts, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	now := time.Now()
	var c Counts
	for _, jobID := range ms.byQueue[queue] {
		job := ms.jobs[jobID]
		switch job.Status {
		case JobStatusPending:
			if job.AvailableAt.After(now) {
				c.Delayed++
			} else {
				c.Pending++
			}
		case JobStatusActive:
			c.Active++
		case JobStatusCompleted:
			c.Completed++
		case JobStatusFailed:
			c.Failed++
		}
	}
	return c, nil
}

// WindowStats implements Storage.
func (ms *MemoryStorage) WindowStats(ctx context.Context, queue string, window time.Duration) (WindowStats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var stats WindowStats
	var totalProcessing time.Duration

	for _, jobID := range ms.byQueue[queue] {
		job := ms.jobs[jobID]
		if job.CompletedAt == nil || job.CompletedAt.Before(cutoff) {
			continue
		}
		switch job.Status {
		case JobStatusCompleted, JobStatusFailed:
			stats.TotalJobs++
			if job.Status == JobStatusFailed {
				stats.FailedJobs++
			}
			if job.StartedAt != nil {
				totalProcessing += job.CompletedAt.Sub(*job.StartedAt)
			}
			if stats.LastProcessed == nil || job.CompletedAt.After(*stats.LastProcessed) {
				completedAt := *job.CompletedAt
				stats.LastProcessed = &completedAt
			}
		}
	}

	if stats.TotalJobs > 0 {
		stats.FailureRate = float64(stats.FailedJobs) / float64(stats.TotalJobs)
		stats.AvgProcessing = totalProcessing / time.Duration(stats.TotalJobs)
	}
	return stats, nil
}

// RetryFailed implements Storage.
func (ms *MemoryStorage) RetryFailed(ctx context.Context, queue string) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	retried := 0
	for _, jobID := range slices.Clone(ms.byStatus[JobStatusFailed]) {
		job := ms.jobs[jobID]
		if job.Queue != queue {
			continue
		}

		job.Status = JobStatusPending
		job.Attempts = 0
		job.AvailableAt = now
		job.StartedAt = nil
		job.CompletedAt = nil

		ms.removeFromStatusIndex(jobID, JobStatusFailed)
		ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)
		retried++
	}
	return retried, nil
}

// Clear implements Storage.
func (ms *MemoryStorage) Clear(ctx context.Context, queue string) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for _, jobID := range ms.byQueue[queue] {
		job := ms.jobs[jobID]
		ms.removeFromStatusIndex(jobID, job.Status)
		delete(ms.jobs, jobID)
		removed++
	}
	delete(ms.byQueue, queue)
	return removed, nil
}

// Helper methods

func (ms *MemoryStorage) removeFromStatusIndex(jobID uuid.UUID, status JobStatus) {
	ms.byStatus[status] = slices.DeleteFunc(ms.byStatus[status], func(id uuid.UUID) bool {
		return id == jobID
	})
}

// lockExpirationLoop recovers jobs from dead workers. Without it, jobs
// locked by a crashed process would stay active forever.
func (ms *MemoryStorage) lockExpirationLoop() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.expireLocks()
		case <-ms.done:
			return
		}
	}
}

// expireLocks resets active jobs whose lock has lapsed back to pending.
// Attempt counters are preserved so failure history survives recovery.
func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, jobID := range slices.Clone(ms.byStatus[JobStatusActive]) {
		job := ms.jobs[jobID]
		if job.LockedUntil != nil && job.LockedUntil.Before(now) {
			job.Status = JobStatusPending
			job.LockedUntil = nil
			job.LockedBy = nil
			job.StartedAt = nil

			ms.removeFromStatusIndex(jobID, JobStatusActive)
			ms.byStatus[JobStatusPending] = append(ms.byStatus[JobStatusPending], jobID)
		}
	}
}
