package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncStorage decorates a Storage with a buffered background writer so
// event emission never blocks a job handler. When the buffer is full the
// write falls back to a synchronous Store: audit completeness wins over
// latency.
type AsyncStorage struct {
	inner          Storage
	events         chan Event
	done           chan struct{}
	wg             sync.WaitGroup
	storageTimeout time.Duration
	closeOnce      sync.Once
}

// NewAsyncStorage wraps storage with a buffer of the given size.
func NewAsyncStorage(inner Storage, bufferSize int) (*AsyncStorage, error) {
	if inner == nil {
		return nil, ErrStorageNil
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	as := &AsyncStorage{
		inner:          inner,
		events:         make(chan Event, bufferSize),
		done:           make(chan struct{}),
		storageTimeout: 5 * time.Second,
	}

	as.wg.Add(1)
	go as.drain()

	return as, nil
}

// Store implements Storage.
func (as *AsyncStorage) Store(ctx context.Context, event Event) error {
	select {
	case <-as.done:
		return ErrStorageNotAvailable
	default:
	}

	select {
	case as.events <- event:
		return nil
	default:
		// Buffer full: write synchronously rather than drop the event.
		return as.inner.Store(ctx, event)
	}
}

func (as *AsyncStorage) drain() {
	defer as.wg.Done()

	store := func(event Event) {
		// Detached context: a caller's cancellation must not lose the event.
		ctx, cancel := context.WithTimeout(context.Background(), as.storageTimeout)
		defer cancel()
		_ = as.inner.Store(ctx, event)
	}

	for {
		select {
		case event := <-as.events:
			store(event)
		case <-as.done:
			for {
				select {
				case event := <-as.events:
					store(event)
				default:
					return
				}
			}
		}
	}
}

// Close flushes buffered events, bounded by the context deadline.
func (as *AsyncStorage) Close(ctx context.Context) error {
	as.closeOnce.Do(func() { close(as.done) })

	flushed := make(chan struct{})
	go func() {
		as.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
