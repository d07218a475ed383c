package media

import (
	"context"
	"sync"
)

// MemoryResolver maps media keys to fixed URLs in process memory. Suitable
// for tests and local development.
type MemoryResolver struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewMemoryResolver creates an empty in-memory resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{urls: make(map[string]string)}
}

// Put registers a URL for a media key.
func (r *MemoryResolver) Put(mediaKey, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[mediaKey] = url
}

// Resolve implements Resolver.
func (r *MemoryResolver) Resolve(ctx context.Context, mediaKey, userID string) (string, error) {
	if mediaKey == "" {
		return "", ErrKeyEmpty
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.urls[mediaKey]
	if !ok {
		return "", ErrNotFound
	}
	return url, nil
}
