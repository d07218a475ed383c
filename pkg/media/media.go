// Package media resolves stored media attachments to URLs a destination
// platform can fetch.
//
// Posting workers hold only a media key; resolution to a fetchable URL is
// deferred to publish time so short-lived presigned URLs are still valid
// when the destination downloads the file.
package media

import (
	"context"
	"errors"
)

var (
	// ErrKeyEmpty is returned when an empty media key is resolved.
	ErrKeyEmpty = errors.New("media key cannot be empty")

	// ErrNotFound is returned when the media key has no stored object.
	ErrNotFound = errors.New("media not found")

	// ErrInvalidConfig is returned when required resolver configuration is missing.
	ErrInvalidConfig = errors.New("invalid media resolver configuration")
)

// Resolver converts a stored media key into a URL fetchable by a
// destination platform.
type Resolver interface {
	Resolve(ctx context.Context, mediaKey, userID string) (string, error)
}
