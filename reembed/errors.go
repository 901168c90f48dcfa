package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRegistryRequired is returned when a reembedder is created without a registry.
	ErrRegistryRequired = errors.New("session registry required")
)
