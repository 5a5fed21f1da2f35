package store

import "errors"

var (
	// ErrAlreadyExists indicates an id collision on Enqueue without
	// replace.
	ErrAlreadyExists = errors.New("store: job already exists")

	// ErrNotFound indicates an operation referenced a non-existent id.
	ErrNotFound = errors.New("store: job not found")

	// ErrInvalidState indicates a transition was attempted from a state
	// that does not permit it (e.g. retry_from_dlq on a non-dead job).
	ErrInvalidState = errors.New("store: invalid state for operation")
)
