package history

import (
	"errors"
	"fmt"
)

// Errors returned by history operations.
var (
	// ErrEmptyStack indicates there is no group to undo or redo.
	ErrEmptyStack = errors.New("nothing to replay")

	// ErrGroupInvalid indicates the group on top of the stack was invalidated
	// by an external change to one of its documents.
	ErrGroupInvalid = errors.New("command group is invalid")

	// ErrNotUndoable indicates the group contains a non-undoable marker.
	ErrNotUndoable = errors.New("command group cannot be undone")

	// ErrReplayFailed indicates an action failed while a group was replayed.
	ErrReplayFailed = errors.New("replay failed")

	// ErrOutOfOrder indicates a group spanning several documents is not the
	// most recent entry on every stack it belongs to.
	ErrOutOfOrder = errors.New("other documents have newer changes")

	// ErrDeclined indicates the confirmer refused the replay.
	ErrDeclined = errors.New("replay declined")

	// ErrNoAccess indicates an entry point was called without a live access token.
	ErrNoAccess = errors.New("no exclusive access to the history engine")

	// ErrReentrant indicates undo or redo was requested while a replay was running.
	ErrReentrant = errors.New("history engine re-entered during replay")

	// ErrActionShared indicates an action was recorded into a second group.
	ErrActionShared = errors.New("action already belongs to a group")

	// ErrBuilderClosed indicates a builder was used after Commit or Discard.
	ErrBuilderClosed = errors.New("group builder is closed")

	// ErrEmptyGroup indicates Commit was called on a builder with no actions.
	ErrEmptyGroup = errors.New("command group has no actions")

	// ErrStateFrozen indicates editor state was set after the group was replayed.
	ErrStateFrozen = errors.New("editor state can no longer change")
)

// ReplayError describes an action failure in the middle of a replay.
// Actions before Index (in replay order) were applied; the rest were not.
type ReplayError struct {
	// Group is the name of the group being replayed.
	Group string
	// Direction is the replay direction.
	Direction Direction
	// Index is the position of the failing action within the group.
	Index int
	// Err is the error reported by the action.
	Err error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	return fmt.Sprintf("%s %q: action %d: %v", e.Direction, e.Group, e.Index, e.Err)
}

// Unwrap returns the underlying action error.
func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrReplayFailed.
func (e *ReplayError) Is(target error) bool {
	return target == ErrReplayFailed
}

// panicError wraps a value recovered from a panicking action.
type panicError struct {
	value any
}

func (p panicError) Error() string {
	return fmt.Sprintf("action panicked: %v", p.value)
}
