package core

import "errors"

// Engine operations fail with one of these sentinel errors and leave
// state untouched. Callers decide how to present them.
var (
	// ErrModeLocked is returned when a start or resume is attempted
	// while the current mode is not Working.
	ErrModeLocked = errors.New("timers are locked outside Working mode")

	// ErrEntityTerminal is returned for any mutation on a Done entity.
	ErrEntityTerminal = errors.New("entity is done and cannot change")

	// ErrIndexOutOfRange is returned when a reorder would move an
	// entity past the bounds of its sibling list.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNothingToUndo is returned when the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNotFound is returned when a referenced entity or date is absent.
	ErrNotFound = errors.New("not found")
)
