package publisher_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/audit"
	"github.com/postpilot/engine/pkg/queue"
	"github.com/postpilot/engine/svc/publisher"
)

// MockPublisher is a mock implementation of the external publishing API.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) SubmitPost(ctx context.Context, req publisher.SubmitRequest) (*publisher.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publisher.SubmitResult), args.Error(1)
}

func (m *MockPublisher) PostStats(ctx context.Context, destination, externalPostID string) (map[string]int64, error) {
	args := m.Called(ctx, destination, externalPostID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockGenerator is a mock implementation of the content-generation API.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, variant int) (string, error) {
	args := m.Called(ctx, prompt, variant)
	return args.String(0), args.Error(1)
}

// stubEligibility answers every eligibility check with a fixed outcome.
type stubEligibility struct {
	eligibility publisher.Eligibility
	err         error
	calls       int
}

func (s *stubEligibility) CanPost(ctx context.Context, userID, destination string) (publisher.Eligibility, error) {
	s.calls++
	return s.eligibility, s.err
}

func allowAll() *stubEligibility {
	return &stubEligibility{eligibility: publisher.Eligibility{CanPost: true}}
}

func denyAll(reason string) *stubEligibility {
	return &stubEligibility{eligibility: publisher.Eligibility{CanPost: false, Reason: reason}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnqueuer builds a memory-backed enqueuer and returns its storage for
// assertions on scheduled jobs.
func testEnqueuer(t *testing.T) (*queue.Enqueuer, *queue.MemoryStorage) {
	t.Helper()
	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)
	return enq, storage
}

// testAudit builds a real audit logger over memory storage for assertions
// on emitted events.
func testAudit(t *testing.T) (audit.Logger, *audit.MemoryStorage) {
	t.Helper()
	storage := audit.NewMemoryStorage()
	log, err := audit.NewLogger(storage)
	require.NoError(t, err)
	return log, storage
}
