package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps audit events in process memory. Suitable for tests
// and local development.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage creates a new in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store implements Storage.
func (ms *MemoryStorage) Store(ctx context.Context, event Event) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = append(ms.events, event)
	return nil
}

// Events returns a copy of all stored events in insertion order.
func (ms *MemoryStorage) Events() []Event {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return slices.Clone(ms.events)
}

// ByAction returns a copy of the stored events matching the given action.
func (ms *MemoryStorage) ByAction(action string) []Event {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Event
	for _, e := range ms.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
