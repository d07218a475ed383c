package publisher

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryPostJobRepository implements PostJobRepository in process memory.
type MemoryPostJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*PostJob
}

// NewMemoryPostJobRepository creates an empty in-memory PostJob repository.
func NewMemoryPostJobRepository() *MemoryPostJobRepository {
	return &MemoryPostJobRepository{jobs: make(map[uuid.UUID]*PostJob)}
}

// Create implements PostJobRepository.
func (r *MemoryPostJobRepository) Create(ctx context.Context, job *PostJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("post job %s already exists", job.ID)
	}
	jobCopy := *job
	r.jobs[job.ID] = &jobCopy
	return nil
}

// Get implements PostJobRepository.
func (r *MemoryPostJobRepository) Get(ctx context.Context, id uuid.UUID) (*PostJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// MarkSent implements PostJobRepository.
func (r *MemoryPostJobRepository) MarkSent(ctx context.Context, id uuid.UUID, result PostResult) error {
	return r.update(id, PostJobSent, result)
}

// MarkFailed implements PostJobRepository.
func (r *MemoryPostJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, result PostResult) error {
	return r.update(id, PostJobFailed, result)
}

// SetMetrics implements PostJobRepository.
func (r *MemoryPostJobRepository) SetMetrics(ctx context.Context, id uuid.UUID, metrics map[string]int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
	}

	now := time.Now()
	job.Result.Metrics = maps.Clone(metrics)
	job.Result.CollectedAt = &now
	job.UpdatedAt = now
	return nil
}

func (r *MemoryPostJobRepository) update(id uuid.UUID, status PostJobStatus, result PostResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPostJobNotFound, id)
	}

	job.Status = status
	job.Result = result
	job.UpdatedAt = time.Now()
	return nil
}

// generationRecord tracks one content-generation request's outcome.
type generationRecord struct {
	Content   string
	Error     string
	Completed bool
	Failed    bool
}

// MemoryContentRepository implements ContentRepository in process memory.
type MemoryContentRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*generationRecord
}

// NewMemoryContentRepository creates an empty in-memory content repository.
func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{records: make(map[uuid.UUID]*generationRecord)}
}

// MarkCompleted implements ContentRepository.
func (r *MemoryContentRepository) MarkCompleted(ctx context.Context, id uuid.UUID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[id] = &generationRecord{Content: content, Completed: true}
	return nil
}

// MarkFailed implements ContentRepository.
func (r *MemoryContentRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[id] = &generationRecord{Error: errMsg, Failed: true}
	return nil
}

// Content returns the stored content and whether generation completed.
func (r *MemoryContentRepository) Content(id uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || !rec.Completed {
		return "", false
	}
	return rec.Content, true
}

// FailureReason returns the stored error and whether generation failed.
func (r *MemoryContentRepository) FailureReason(id uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || !rec.Failed {
		return "", false
	}
	return rec.Error, true
}

// MemoryAccountResolver implements AccountResolver in process memory.
type MemoryAccountResolver struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by userID:destination
}

// NewMemoryAccountResolver creates an empty in-memory account resolver.
func NewMemoryAccountResolver() *MemoryAccountResolver {
	return &MemoryAccountResolver{accounts: make(map[string]*Account)}
}

// Put registers an account.
func (r *MemoryAccountResolver) Put(account *Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.UserID+":"+account.Destination] = account
}

// Account implements AccountResolver.
func (r *MemoryAccountResolver) Account(ctx context.Context, userID, destination string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[userID+":"+destination]
	if !ok {
		return nil, fmt.Errorf("%w: user %s on %s", ErrNoPublishingAccount, userID, destination)
	}
	accountCopy := *account
	return &accountCopy, nil
}
