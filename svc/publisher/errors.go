package publisher

import "errors"

var (
	// ErrNoPublishingAccount is returned when a user has no publishing
	// account for the requested destination. Retrying cannot help without
	// operator intervention, so workers fail fast on it.
	ErrNoPublishingAccount = errors.New("no publishing account for destination")

	// ErrPostingNotAllowed is returned when the eligibility gate denies a
	// publish attempt.
	ErrPostingNotAllowed = errors.New("posting not allowed")

	// ErrPostJobNotFound is returned when a PostJob record does not exist.
	ErrPostJobNotFound = errors.New("post job not found")

	// ErrNoDestinations is returned when a batch campaign has an empty
	// destination list.
	ErrNoDestinations = errors.New("campaign has no destinations")

	// ErrInvalidVariantCount is returned when a promo request asks for
	// fewer than one or more than five variants.
	ErrInvalidVariantCount = errors.New("variant count must be between 1 and 5")

	// ErrDependencyNil is returned when a worker is constructed without a
	// required collaborator.
	ErrDependencyNil = errors.New("missing required dependency")
)
