package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilot/engine/pkg/audit"
)

// blockingStorage holds Store calls until released, to force buffer pressure.
type blockingStorage struct {
	mu      sync.Mutex
	stored  []audit.Event
	release chan struct{}
}

func (b *blockingStorage) Store(ctx context.Context, event audit.Event) error {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stored = append(b.stored, event)
	return nil
}

func (b *blockingStorage) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stored)
}

func TestNewAsyncStorage(t *testing.T) {
	t.Parallel()

	_, err := audit.NewAsyncStorage(nil, 10)
	assert.ErrorIs(t, err, audit.ErrStorageNil)
}

func TestAsyncStorage_StoreAndFlush(t *testing.T) {
	t.Parallel()

	inner := &blockingStorage{}
	async, err := audit.NewAsyncStorage(inner, 16)
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, async.Store(context.Background(), audit.Event{Action: "job.completed"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, async.Close(ctx))

	assert.Equal(t, 5, inner.count(), "close must flush every buffered event")
}

func TestAsyncStorage_RejectsAfterClose(t *testing.T) {
	t.Parallel()

	inner := &blockingStorage{}
	async, err := audit.NewAsyncStorage(inner, 4)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, async.Close(ctx))

	err = async.Store(context.Background(), audit.Event{Action: "late"})
	assert.ErrorIs(t, err, audit.ErrStorageNotAvailable)
}

func TestAsyncStorage_NoEventLostUnderBufferPressure(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	inner := &blockingStorage{release: release}
	async, err := audit.NewAsyncStorage(inner, 1)
	require.NoError(t, err)

	// With a one-slot buffer and a blocked inner store, some of these writes
	// overflow into the synchronous fallback. None may be dropped.
	const total = 4
	var wg sync.WaitGroup
	for range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, async.Store(context.Background(), audit.Event{Action: "pressure"}))
		}()
	}

	close(release)
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, async.Close(ctx))
	assert.Equal(t, total, inner.count())
}
