package core

import "errors"

// Errors returned by the engine. All are recoverable; callers match them
// with errors.Is and translate them into messages or fallbacks.
var (
	// ErrEmptyTitle is returned when a capture string has no title words
	// left after all markers are stripped.
	ErrEmptyTitle = errors.New("capture has no title")

	// ErrNotFound is returned when an operation references an unknown task id.
	ErrNotFound = errors.New("task not found")

	// ErrImmutableField is returned when an update tries to change id or createdAt.
	ErrImmutableField = errors.New("field is immutable")

	// ErrAlreadyScheduled is returned when assigning a slot to a task that
	// already holds one.
	ErrAlreadyScheduled = errors.New("task is already scheduled")

	// ErrInvalidDuration is returned when a duration hint is zero or negative.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrNoAvailableSlot is returned when no gap fits before the horizon.
	ErrNoAvailableSlot = errors.New("no available slot before horizon")
)
