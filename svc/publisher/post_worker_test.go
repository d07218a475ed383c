package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/audit"
	"github.com/postpilot/engine/pkg/media"
	"github.com/postpilot/engine/pkg/queue"
	"github.com/postpilot/engine/svc/publisher"
)

type postWorkerFixture struct {
	worker    *publisher.PostWorker
	posts     *publisher.MemoryPostJobRepository
	accounts  *publisher.MemoryAccountResolver
	media     *media.MemoryResolver
	pub       *MockPublisher
	audits    *audit.MemoryStorage
	jobs      *queue.MemoryStorage
	elig      *stubEligibility
	job       *publisher.PostJob
}

func newPostWorkerFixture(t *testing.T, elig *stubEligibility) *postWorkerFixture {
	t.Helper()

	posts := publisher.NewMemoryPostJobRepository()
	accounts := publisher.NewMemoryAccountResolver()
	resolver := media.NewMemoryResolver()
	pub := new(MockPublisher)
	auditLog, auditStore := testAudit(t)
	enq, jobs := testEnqueuer(t)

	worker, err := publisher.NewPostWorker(publisher.PostWorkerDeps{
		Posts:       posts,
		Accounts:    accounts,
		Eligibility: elig,
		Publisher:   pub,
		Media:       resolver,
		Audit:       auditLog,
		Enqueuer:    enq,
	}, publisher.WithWorkerLogger(discardLogger()), publisher.WithMetricsDelay(time.Hour))
	require.NoError(t, err)

	now := time.Now()
	job := &publisher.PostJob{
		ID:          uuid.New(),
		UserID:      "user1",
		Destination: "reddit",
		Title:       "Launch day",
		Body:        "We are live",
		Status:      publisher.PostJobPending,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, posts.Create(context.Background(), job))

	return &postWorkerFixture{
		worker:   worker,
		posts:    posts,
		accounts: accounts,
		media:    resolver,
		pub:      pub,
		audits:   auditStore,
		jobs:     jobs,
		elig:     elig,
		job:      job,
	}
}

func (f *postWorkerFixture) handle(t *testing.T) error {
	t.Helper()
	payload, err := json.Marshal(publisher.PostJobPayload{PostJobID: f.job.ID, UserID: f.job.UserID})
	require.NoError(t, err)
	return f.worker.Handler().Handle(context.Background(), payload)
}

func TestNewPostWorker(t *testing.T) {
	t.Parallel()

	_, err := publisher.NewPostWorker(publisher.PostWorkerDeps{})
	assert.ErrorIs(t, err, publisher.ErrDependencyNil)
}

func TestPostWorker_PublishSuccess(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	f.accounts.Put(&publisher.Account{ID: uuid.New(), UserID: "user1", Destination: "reddit", Username: "u1"})
	f.pub.On("SubmitPost", mock.Anything, mock.MatchedBy(func(req publisher.SubmitRequest) bool {
		return req.Destination == "reddit" && req.Title == "Launch day"
	})).Return(&publisher.SubmitResult{PostID: "r-123", URL: "https://reddit.com/r-123"}, nil)

	require.NoError(t, f.handle(t))

	// The PostJob carries the platform identifiers.
	job, err := f.posts.Get(context.Background(), f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, publisher.PostJobSent, job.Status)
	assert.Equal(t, "r-123", job.Result.ExternalPostID)
	assert.NotNil(t, job.Result.CompletedAt)

	// Audit trail records the completion.
	events := f.audits.ByAction("job.completed")
	require.Len(t, events, 1)
	assert.Equal(t, "user1", events[0].UserID)

	// A deferred metrics-collection job is scheduled, invisible until its delay.
	counts, err := f.jobs.Counts(context.Background(), publisher.QueueMetrics)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Delayed)
	assert.Zero(t, counts.Pending)
}

func TestPostWorker_MissingAccountFailsFast(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	// No account registered for user1 on reddit.

	err := f.handle(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, publisher.ErrNoPublishingAccount)

	// The platform was never called.
	f.pub.AssertNotCalled(t, "SubmitPost", mock.Anything, mock.Anything)

	job, getErr := f.posts.Get(context.Background(), f.job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, publisher.PostJobFailed, job.Status)
	assert.NotEmpty(t, job.Result.Error)

	require.Len(t, f.audits.ByAction("job.failed"), 1)
}

func TestPostWorker_IneligibleNeverCallsPublisher(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, denyAll("cooldown: next post to reddit allowed in 9m0s"))
	f.accounts.Put(&publisher.Account{ID: uuid.New(), UserID: "user1", Destination: "reddit", Username: "u1"})

	err := f.handle(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, publisher.ErrPostingNotAllowed)
	assert.Contains(t, err.Error(), "cooldown")

	f.pub.AssertNotCalled(t, "SubmitPost", mock.Anything, mock.Anything)

	job, getErr := f.posts.Get(context.Background(), f.job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, publisher.PostJobFailed, job.Status)
}

func TestPostWorker_MediaFailureDegradesToTextOnly(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	// The repository stores copies, so register a fresh job carrying the key.
	f.job.ID = uuid.New()
	f.job.MediaKey = "broken.png"
	require.NoError(t, f.posts.Create(context.Background(), f.job))

	f.accounts.Put(&publisher.Account{ID: uuid.New(), UserID: "user1", Destination: "reddit", Username: "u1"})
	// The key is not registered in the resolver, so resolution fails.
	f.pub.On("SubmitPost", mock.Anything, mock.MatchedBy(func(req publisher.SubmitRequest) bool {
		return req.MediaURL == ""
	})).Return(&publisher.SubmitResult{PostID: "r-1"}, nil)

	require.NoError(t, f.handle(t))
	f.pub.AssertExpectations(t)
}

func TestPostWorker_MediaResolvedIntoRequest(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	f.job.ID = uuid.New()
	f.job.MediaKey = "img.png"
	require.NoError(t, f.posts.Create(context.Background(), f.job))

	f.accounts.Put(&publisher.Account{ID: uuid.New(), UserID: "user1", Destination: "reddit", Username: "u1"})
	f.media.Put("img.png", "https://cdn.example.com/img.png")
	f.pub.On("SubmitPost", mock.Anything, mock.MatchedBy(func(req publisher.SubmitRequest) bool {
		return req.MediaURL == "https://cdn.example.com/img.png"
	})).Return(&publisher.SubmitResult{PostID: "r-2"}, nil)

	require.NoError(t, f.handle(t))
	f.pub.AssertExpectations(t)
}

func TestPostWorker_SubmitFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	f.accounts.Put(&publisher.Account{ID: uuid.New(), UserID: "user1", Destination: "reddit", Username: "u1"})
	f.pub.On("SubmitPost", mock.Anything, mock.Anything).Return(nil, errors.New("platform rejected content"))

	err := f.handle(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform rejected content")

	job, getErr := f.posts.Get(context.Background(), f.job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, publisher.PostJobFailed, job.Status)
	assert.NotNil(t, job.Result.FailedAt)

	// No metrics collection for a failed publish.
	counts, countsErr := f.jobs.Counts(context.Background(), publisher.QueueMetrics)
	require.NoError(t, countsErr)
	assert.Zero(t, counts.Pending+counts.Delayed)
}

func TestPostWorker_UnknownPostJob(t *testing.T) {
	t.Parallel()

	f := newPostWorkerFixture(t, allowAll())
	payload, err := json.Marshal(publisher.PostJobPayload{PostJobID: uuid.New(), UserID: "user1"})
	require.NoError(t, err)

	err = f.worker.Handler().Handle(context.Background(), payload)
	assert.ErrorIs(t, err, publisher.ErrPostJobNotFound)
}
