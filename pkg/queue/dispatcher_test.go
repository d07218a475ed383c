package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, storage queue.Storage) *queue.Dispatcher {
	t.Helper()
	d, err := queue.NewDispatcher(storage,
		queue.WithPullInterval(10*time.Millisecond),
		queue.WithDispatcherLogger(discardLogger()))
	require.NoError(t, err)
	return d
}

func TestDispatcher_RegisterProcessor(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()

	d := newTestDispatcher(t, storage)
	noop := queue.HandlerFunc(func(ctx context.Context, payload json.RawMessage) error { return nil })

	require.NoError(t, d.RegisterProcessor("post", noop, 2))

	t.Run("rejects duplicate queue", func(t *testing.T) {
		assert.ErrorIs(t, d.RegisterProcessor("post", noop, 1), queue.ErrProcessorRegistered)
	})
	t.Run("rejects empty queue name", func(t *testing.T) {
		assert.ErrorIs(t, d.RegisterProcessor("", noop, 1), queue.ErrQueueNameEmpty)
	})
	t.Run("rejects nil handler", func(t *testing.T) {
		assert.ErrorIs(t, d.RegisterProcessor("other", nil, 1), queue.ErrHandlerNil)
	})
	t.Run("rejects zero concurrency", func(t *testing.T) {
		assert.ErrorIs(t, d.RegisterProcessor("other", noop, 0), queue.ErrInvalidConcurrency)
	})

	t.Run("rejects registration after start", func(t *testing.T) {
		require.NoError(t, d.Start(context.Background()))
		defer d.Close()
		assert.ErrorIs(t, d.RegisterProcessor("late", noop, 1), queue.ErrDispatcherStarted)
	})
}

func TestDispatcher_ProcessesJobs(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	var handled atomic.Int64
	d := newTestDispatcher(t, storage)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		handled.Add(1)
		return nil
	}), 2))

	for range 5 {
		_, err := enq.AddJob(context.Background(), "post", greetPayload{Message: "go"})
		require.NoError(t, err)
	}

	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	require.Eventually(t, func() bool {
		return handled.Load() == 5
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		counts, err := storage.Counts(context.Background(), "post")
		return err == nil && counts.Completed == 5
	}, 5*time.Second, 20*time.Millisecond)

	stats := d.Stats()["post"]
	assert.Equal(t, int64(5), stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.False(t, stats.LastActivity.IsZero())
}

func TestDispatcher_HandlerErrorFailsJob(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	d := newTestDispatcher(t, storage)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		return errors.New("submission rejected")
	}), 1))

	_, err = enq.AddJob(context.Background(), "post", greetPayload{Message: "doomed"})
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	require.Eventually(t, func() bool {
		counts, err := storage.Counts(context.Background(), "post")
		return err == nil && counts.Failed == 1
	}, 5*time.Second, 20*time.Millisecond)

	// Failed jobs stay failed; the dispatcher never retries them.
	time.Sleep(100 * time.Millisecond)
	counts, err := storage.Counts(context.Background(), "post")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Failed)
	assert.Zero(t, counts.Pending)
	assert.Equal(t, int64(1), d.Stats()["post"].Failed)
}

func TestDispatcher_PanicRecovery(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	d := newTestDispatcher(t, storage)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		panic("handler exploded")
	}), 1))

	_, err = enq.AddJob(context.Background(), "post", greetPayload{Message: "kaboom"})
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	require.Eventually(t, func() bool {
		counts, err := storage.Counts(context.Background(), "post")
		return err == nil && counts.Failed == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_ConcurrencyCap(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	const cap = 2
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	release := make(chan struct{})

	d := newTestDispatcher(t, storage)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		<-release

		mu.Lock()
		current--
		mu.Unlock()
		return nil
	}), cap))

	for range 6 {
		_, err := enq.AddJob(context.Background(), "post", greetPayload{Message: "work"})
		require.NoError(t, err)
	}

	require.NoError(t, d.Start(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return current == cap
	}, 5*time.Second, 10*time.Millisecond)

	// Give the pull loop a few more ticks to prove it does not overfill.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, cap, peak)
	mu.Unlock()

	close(release)
	require.NoError(t, d.Close())

	mu.Lock()
	assert.LessOrEqual(t, peak, cap)
	mu.Unlock()
}

func TestDispatcher_SetConcurrency(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()

	d := newTestDispatcher(t, storage)
	noop := queue.HandlerFunc(func(ctx context.Context, payload json.RawMessage) error { return nil })
	require.NoError(t, d.RegisterProcessor("post", noop, 1))

	require.NoError(t, d.SetConcurrency("post", 4))
	n, err := d.Concurrency("post")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	t.Run("rejects values below one", func(t *testing.T) {
		assert.ErrorIs(t, d.SetConcurrency("post", 0), queue.ErrInvalidConcurrency)
	})
	t.Run("rejects unknown queue", func(t *testing.T) {
		assert.ErrorIs(t, d.SetConcurrency("ghost", 2), queue.ErrProcessorNotFound)
	})
}

func TestDispatcher_PauseResume(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	var handled atomic.Int64
	d := newTestDispatcher(t, storage)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		handled.Add(1)
		return nil
	}), 1))

	require.NoError(t, d.Pause("post"))
	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	_, err = enq.AddJob(context.Background(), "post", greetPayload{Message: "wait"})
	require.NoError(t, err)

	// Paused queue leaves jobs untouched.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, handled.Load())
	counts, err := storage.Counts(context.Background(), "post")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pending)
	assert.True(t, d.Stats()["post"].Paused)

	require.NoError(t, d.Resume("post"))
	require.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_HandlerOutlivesLockWindow(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	enq, err := queue.NewEnqueuer(storage)
	require.NoError(t, err)

	d, err := queue.NewDispatcher(storage,
		queue.WithPullInterval(10*time.Millisecond),
		queue.WithLockTimeout(200*time.Millisecond),
		queue.WithDispatcherLogger(discardLogger()))
	require.NoError(t, err)

	// The handler runs long enough for the lock to lapse several times over
	// and for the storage's expiration sweep to fire while it is in flight.
	var (
		invocations atomic.Int64
		mu          sync.Mutex
		ctxErr      error
	)
	require.NoError(t, d.RegisterProcessor("post", queue.NewHandler(func(ctx context.Context, p greetPayload) error {
		invocations.Add(1)
		time.Sleep(1500 * time.Millisecond)
		mu.Lock()
		ctxErr = ctx.Err()
		mu.Unlock()
		return nil
	}), 1))

	_, err = enq.AddJob(context.Background(), "post", greetPayload{Message: "slow"})
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	require.Eventually(t, func() bool {
		counts, err := storage.Counts(context.Background(), "post")
		return err == nil && counts.Completed == 1
	}, 5*time.Second, 20*time.Millisecond)

	// A slow handler keeps its claim: it runs once, uncanceled, and the job
	// is never handed to a second worker.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), invocations.Load())
	mu.Lock()
	assert.NoError(t, ctxErr)
	mu.Unlock()

	counts, err := storage.Counts(context.Background(), "post")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Completed)
	assert.Zero(t, counts.Pending)
	assert.Zero(t, counts.Failed)

	stats := d.Stats()["post"]
	assert.Equal(t, int64(1), stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestDispatcher_Lifecycle(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()

	noop := queue.HandlerFunc(func(ctx context.Context, payload json.RawMessage) error { return nil })

	t.Run("start requires processors", func(t *testing.T) {
		t.Parallel()
		d := newTestDispatcher(t, storage)
		assert.ErrorIs(t, d.Start(context.Background()), queue.ErrProcessorNotFound)
	})

	t.Run("double start fails", func(t *testing.T) {
		t.Parallel()
		d := newTestDispatcher(t, storage)
		require.NoError(t, d.RegisterProcessor("post", noop, 1))
		require.NoError(t, d.Start(context.Background()))
		assert.ErrorIs(t, d.Start(context.Background()), queue.ErrDispatcherStarted)
		require.NoError(t, d.Close())
	})

	t.Run("close before start fails", func(t *testing.T) {
		t.Parallel()
		d := newTestDispatcher(t, storage)
		assert.ErrorIs(t, d.Close(), queue.ErrDispatcherStopped)
	})
}
