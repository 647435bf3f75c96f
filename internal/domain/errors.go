package domain

import "errors"

// Error kinds surfaced by the engine. Call sites wrap them with context via
// fmt.Errorf("...: %w", ...); callers branch with errors.Is.
var (
	// ErrNotFound is returned for unknown game, quiz, player, or question ids.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation is illegal in the current
	// state, e.g. joining a game that is no longer queueing.
	ErrConflict = errors.New("conflict with current state")
	// ErrCapacity is returned when the color palette is exhausted on join.
	ErrCapacity = errors.New("capacity exhausted")
	// ErrInternal is returned when an invariant does not hold, e.g. no
	// in-progress question when an answer arrives.
	ErrInternal = errors.New("internal inconsistency")
)
