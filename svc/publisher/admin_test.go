package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/monitor"
	"github.com/postpilot/engine/pkg/queue"
	"github.com/postpilot/engine/pkg/scaler"
	"github.com/postpilot/engine/svc/publisher"
)

type adminFixture struct {
	admin   *publisher.Admin
	storage *queue.MemoryStorage
	disp    *queue.Dispatcher
}

// newAdminFixture wires the facade over the real pipeline components: memory
// storage, a dispatcher with one registered queue, a monitor sampling that
// storage, and a scaler adjusting the dispatcher.
func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	storage := queue.NewMemoryStorage()
	t.Cleanup(func() { _ = storage.Close() })

	disp, err := queue.NewDispatcher(storage, queue.WithDispatcherLogger(discardLogger()))
	require.NoError(t, err)
	noop := queue.NewHandler(func(ctx context.Context, payload struct{}) error { return nil })
	require.NoError(t, disp.RegisterProcessor("post", noop, 2))

	mon, err := monitor.New(storage, disp, []string{"post"}, monitor.WithLogger(discardLogger()))
	require.NoError(t, err)

	sc, err := scaler.New(storage, disp, mon, []string{"post"},
		scaler.WithLogger(discardLogger()),
		scaler.WithDefaultPolicy(scaler.Policy{
			MinConcurrency:   1,
			MaxConcurrency:   4,
			ScaleUpThreshold: 10,
			ScaleDownIdle:    time.Minute,
			Cooldown:         time.Minute,
		}))
	require.NoError(t, err)

	admin, err := publisher.NewAdmin(disp, storage, sc, mon, discardLogger())
	require.NoError(t, err)

	return &adminFixture{admin: admin, storage: storage, disp: disp}
}

func (f *adminFixture) createJob(t *testing.T) *queue.Job {
	t.Helper()
	job := &queue.Job{
		ID:          uuid.New(),
		Queue:       "post",
		Payload:     json.RawMessage(`{}`),
		Status:      queue.JobStatusPending,
		AvailableAt: time.Now(),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.storage.CreateJob(context.Background(), job))
	return job
}

func TestNewAdmin(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	cases := []struct {
		name string
		fn   func() (*publisher.Admin, error)
	}{
		{"nil dispatcher", func() (*publisher.Admin, error) {
			return publisher.NewAdmin(nil, f.storage, nil, nil, nil)
		}},
		{"nil storage", func() (*publisher.Admin, error) {
			return publisher.NewAdmin(f.disp, nil, nil, nil, nil)
		}},
	}
	for _, tc := range cases {
		_, err := tc.fn()
		assert.ErrorIs(t, err, publisher.ErrDependencyNil, tc.name)
	}
}

func TestAdmin_PauseResume(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	require.NoError(t, f.admin.PauseQueue("post"))
	require.NoError(t, f.admin.ResumeQueue("post"))

	assert.Error(t, f.admin.PauseQueue("unregistered"))
	assert.Error(t, f.admin.ResumeQueue("unregistered"))
}

func TestAdmin_RetryFailedJobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAdminFixture(t)

	f.createJob(t)
	claimed, err := f.storage.ClaimJob(ctx, uuid.New(), "post", time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.storage.FailJob(ctx, claimed.ID, "boom"))

	n, err := f.admin.RetryFailedJobs(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := f.admin.QueueCounts(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pending)
	assert.Zero(t, counts.Failed)
}

func TestAdmin_ClearQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAdminFixture(t)

	f.createJob(t)
	f.createJob(t)

	n, err := f.admin.ClearQueue(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := f.admin.QueueCounts(ctx, "post")
	require.NoError(t, err)
	assert.Zero(t, counts.Pending+counts.Active+counts.Completed+counts.Failed+counts.Delayed)
}

func TestAdmin_ScaleQueue(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	require.NoError(t, f.admin.ScaleQueue("post", 4))

	n, err := f.disp.Concurrency("post")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	states := f.admin.ScalingStates()
	require.Contains(t, states, "post")
	assert.Equal(t, 4, states["post"].CurrentConcurrency)

	err = f.admin.ScaleQueue("post", 9)
	assert.ErrorIs(t, err, scaler.ErrTargetOutOfBounds)
	err = f.admin.ScaleQueue("ghost", 2)
	assert.ErrorIs(t, err, scaler.ErrUnknownQueue)
}

func TestAdmin_SystemHealth(t *testing.T) {
	t.Parallel()

	f := newAdminFixture(t)

	health := f.admin.SystemHealth()
	assert.Equal(t, monitor.HealthHealthy, health.Overall)
}
