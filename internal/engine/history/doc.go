// Package history is the reversible-command engine behind the editor's
// undo and redo.
//
// # Actions and groups
//
// An Action is a closed union of variants: an ordinary edit wrapping a
// caller-supplied Reversible, a start mark, a finish mark, or a
// non-undoable marker. Actions are collected by a GroupBuilder into a
// CommandGroup, the unit that one undo or redo replays:
//
//	err := engine.WithExclusiveAccess(func(acc *history.Access) error {
//	    b, err := engine.BeginGroup(acc, "Find and Replace")
//	    if err != nil {
//	        return err
//	    }
//	    b.Record(history.NewEdit(edit1))
//	    b.Record(history.NewEdit(edit2))
//	    _, err = b.Commit(acc)
//	    return err
//	})
//
// # Stacks
//
// Each document has an undo and a redo stack. Groups are owned by an arena
// inside the engine; stacks keep handles, so a group touching several
// documents is shared by all their stacks. Global groups and groups
// spanning more than one document are also ordered on the GlobalRef stack.
//
// # Replay
//
// Undo visits a group's actions last to first, redo first to last. Large
// groups put each document into bulk mode for the contiguous run of actions
// touching it. A failing action stops the replay, the group is dropped and
// a *ReplayError is returned.
//
// # Brackets
//
// A start mark and a later finish mark delimit several groups that undo and
// redo as one unit. When the finish mark arrives and a global group sits
// between it and its start mark, the finishing group becomes global under
// that group's name.
//
// # Exclusive access
//
// All entry points take the *Access token handed out by
// WithExclusiveAccess. Undo or redo requested from inside a replay fails
// with ErrReentrant.
package history
