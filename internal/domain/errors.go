package domain

import "errors"

// Sentinel errors surfaced by the mutation and analytics layers. Callers
// match them with errors.Is; lower layers wrap them with context.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrEmptyUpdate is returned by the diff engine when the filtered,
	// changed field set is empty. It is a normal rejection, not a fault.
	ErrEmptyUpdate = errors.New("empty update")

	// ErrNoChangesDetected rejects a no-op update before any history or
	// storage mutation takes place.
	ErrNoChangesDetected = errors.New("no changes detected")

	// ErrInvalidReference indicates a board, parent, epic or dependency
	// field points at a malformed or non-existent entity.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrConcurrentModification indicates an optimistic version conflict.
	// The caller may retry with a fresh read; the engine never auto-retries.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrPersistenceFailure indicates the store rejected or timed out on a
	// read or write. No partial history mutation is left visible.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrSprintNotFound indicates the board id passed to an aggregation
	// does not resolve.
	ErrSprintNotFound = errors.New("sprint not found")
)
