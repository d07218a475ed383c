package monitor

import "errors"

var (
	// ErrSamplerNil is returned when a nil sampler is provided.
	ErrSamplerNil = errors.New("sampler cannot be nil")

	// ErrNoQueues is returned when no queue names are provided.
	ErrNoQueues = errors.New("at least one queue name is required")
)
