package cooldown

import "errors"

var (
	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("store cannot be nil")

	// ErrInvalidWindow is returned when the cooldown window is not positive.
	ErrInvalidWindow = errors.New("cooldown window must be positive")

	// ErrKeyEmpty is returned when an empty key is checked.
	ErrKeyEmpty = errors.New("key cannot be empty")
)
