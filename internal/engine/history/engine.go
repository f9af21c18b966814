package history

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/undocore/internal/event"
	"github.com/dshills/undocore/internal/logging"
)

// Workspace is the document collaborator the engine replays into.
type Workspace interface {
	// DocumentsOf returns the documents an action touches.
	DocumentsOf(a *Action) []DocumentRef
	// OpenDocuments returns the documents currently open.
	OpenDocuments() []DocumentRef
	// Commit flushes a document's pending state after a replay.
	Commit(ref DocumentRef)
	// SetBulkMode suppresses or resumes incremental change notification.
	SetBulkMode(ref DocumentRef, on bool)
	// SnapshotEditorState captures the editor state around a group.
	SnapshotEditorState() EditorSnapshot
}

// StateRestorer is implemented by workspaces that can restore editor state.
// After an undo the engine restores the group's before-state, after a redo
// its after-state.
type StateRestorer interface {
	RestoreEditorState(s EditorSnapshot)
}

// Engine records command groups and replays them per document.
//
// Every entry point takes the *Access handed out by WithExclusiveAccess;
// there is no other locking inside the engine.
type Engine struct {
	mu        sync.Mutex
	replaying atomic.Bool

	ws      Workspace
	arena   *arena
	stacks  *DocumentStacks
	marks   *markTracker
	clock   uint64
	logger  *logging.Logger
	bus     *event.Bus
	confirm Confirmer

	maxDepth      int
	bulkThreshold int
}

// New creates an engine replaying into ws.
func New(ws Workspace, opts ...Option) *Engine {
	e := &Engine{
		ws:            ws,
		arena:         &arena{},
		marks:         newMarkTracker(),
		logger:        logging.Nop(),
		maxDepth:      DefaultMaxDepth,
		bulkThreshold: DefaultBulkThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("history")
	e.stacks = newDocumentStacks(e.arena, e.maxDepth)
	return e
}

// push assigns the timestamp, composes brackets and pushes g onto its stacks.
func (e *Engine) push(acc *Access, g *CommandGroup) GroupHandle {
	refs := e.marks.bracketRefs(g)
	e.compose(g, refs)
	e.clock++
	g.timestamp = e.clock

	for _, ref := range e.marks.observe(g, refs) {
		e.logger.Warn("finish mark %q on %s without a start mark", g.name, ref)
	}

	h := e.arena.insert(g)
	freed := e.stacks.push(h, g.stackRefs())
	if len(freed) > 0 {
		e.logger.Debug("evicted %d groups beyond depth %d", len(freed), e.maxDepth)
	}
	e.logger.Debug("pushed %q (%d actions) on %v", g.name, len(g.actions), g.stackRefs())
	e.publish(acc, TopicGroupCommitted, GroupEvent{Document: firstDocument(g), Group: g.Info()})
	return h
}

func firstDocument(g *CommandGroup) DocumentRef {
	if len(g.docs) == 0 {
		return GlobalRef
	}
	return g.docs[0]
}

// Undo reverts the most recent group of ref. Pass GlobalRef to undo the most
// recent global group.
func (e *Engine) Undo(acc *Access, ref DocumentRef) error {
	return e.replay(acc, ref, Undo)
}

// Redo reapplies the most recently undone group of ref.
func (e *Engine) Redo(acc *Access, ref DocumentRef) error {
	return e.replay(acc, ref, Redo)
}

// replay undoes or redoes one logical unit on ref's stack: a single group,
// a bracketed start/finish run, or a visible group plus the transparent
// groups that travel with it.
func (e *Engine) replay(acc *Access, ref DocumentRef, dir Direction) error {
	if err := e.check(acc); err != nil {
		return err
	}

	source := ref
	inside := false
	for first := true; ; first = false {
		h, ok := e.stacks.top(source, dir)
		if !ok && inside && source != GlobalRef {
			// The rest of a global bracket may live on other documents.
			source = GlobalRef
			h, ok = e.stacks.top(source, dir)
		}
		if !ok {
			if first {
				return ErrEmptyStack
			}
			return nil
		}
		g, _ := e.arena.get(h)

		if err := e.admit(acc, h, g, ref, dir, first); err != nil {
			return err
		}

		if err := e.replayOne(acc, h, g, ref, dir); err != nil {
			return err
		}

		inside = g.IsInsideStartFinishGroup(dir == Undo, inside)
		if inside {
			if source == GlobalRef && len(g.docs) > 0 {
				source = g.docs[0]
			}
			continue
		}
		if dir == Undo && g.transparent {
			continue
		}
		if dir == Redo {
			if next, ok := e.stacks.top(source, Redo); ok {
				if ng, _ := e.arena.get(next); ng != nil && ng.transparent {
					continue
				}
			}
		}
		return nil
	}
}

// admit checks that g may be replayed now. Refusals leave the stacks untouched.
func (e *Engine) admit(acc *Access, h GroupHandle, g *CommandGroup, ref DocumentRef, dir Direction, first bool) error {
	var err error
	switch {
	case !g.valid:
		err = fmt.Errorf("%s %q: %w", dir, g.name, ErrGroupInvalid)
	case !g.IsUndoable():
		return fmt.Errorf("%s %q: %w", dir, g.name, ErrNotUndoable)
	case !e.stacks.isTopAll(h, g.stackRefs(), dir):
		err = fmt.Errorf("%s %q: %w", dir, g.name, ErrOutOfOrder)
	}
	if err != nil {
		e.logger.Warn("%v", err)
		e.publish(acc, TopicReplayRefused, failure(ref, dir, g, err))
		return err
	}

	if first && e.confirm != nil && g.ShouldAskConfirmation(dir == Redo) {
		if !e.confirm(g.Info(), dir) {
			e.logger.Info("%s of %q declined", dir, g.name)
			e.publish(acc, TopicReplayDeclined, failure(ref, dir, g, ErrDeclined))
			return fmt.Errorf("%s %q: %w", dir, g.name, ErrDeclined)
		}
	}
	return nil
}

// replayOne replays g and moves it to the opposite stack. A failed group is
// invalidated and dropped from every stack: its documents are in a partial
// state that neither direction can reproduce.
func (e *Engine) replayOne(acc *Access, h GroupHandle, g *CommandGroup, ref DocumentRef, dir Direction) error {
	acc.replaying = true
	e.replaying.Store(true)
	err := e.replayGroup(g, dir)
	e.replaying.Store(false)
	acc.replaying = false

	if err != nil {
		g.invalidate()
		e.stacks.drop(h, g.stackRefs())
		e.logger.WithField("group", g.id).Error("%v", err)
		e.publish(acc, TopicReplayFailed, failure(ref, dir, g, err))
		for _, doc := range g.docs {
			if n := e.invalidate(doc); n > 0 {
				e.logger.Warn("invalidated %d groups of %s after failed %s", n, doc, dir)
				e.publish(acc, TopicInvalidated, InvalidatedEvent{Document: doc, Groups: n})
			}
		}
		return err
	}

	e.stacks.move(h, g.stackRefs(), dir)
	if r, ok := e.ws.(StateRestorer); ok {
		if dir == Undo {
			r.RestoreEditorState(g.stateBefore)
		} else {
			r.RestoreEditorState(g.stateAfter)
		}
	}
	e.logger.Debug("%s %q on %s", dir, g.name, ref)
	e.publish(acc, replayTopic(dir), GroupEvent{Document: ref, Group: g.Info()})
	return nil
}

func failure(ref DocumentRef, dir Direction, g *CommandGroup, err error) FailureEvent {
	return FailureEvent{Document: ref, Direction: dir, GroupID: g.id, GroupName: g.name, Err: err}
}

// Invalidate marks every group touching ref as permanently unreplayable.
// Use it when the document changed outside the engine, e.g. a reload.
func (e *Engine) Invalidate(acc *Access, ref DocumentRef) error {
	if err := e.check(acc); err != nil {
		return err
	}
	n := e.invalidate(ref)
	e.logger.Info("invalidated %d groups of %s", n, ref)
	e.publish(acc, TopicInvalidated, InvalidatedEvent{Document: ref, Groups: n})
	return nil
}

func (e *Engine) invalidate(ref DocumentRef) int {
	n := 0
	e.arena.each(func(_ GroupHandle, g *CommandGroup) {
		if g.valid && g.Affects(ref) {
			g.invalidate()
			n++
		}
	})
	return n
}

// CloseDocument forgets ref's history. Groups that also live on other
// stacks are invalidated, since they can no longer replay into ref.
func (e *Engine) CloseDocument(acc *Access, ref DocumentRef) error {
	if err := e.check(acc); err != nil {
		return err
	}
	if ref == GlobalRef {
		return fmt.Errorf("close %s: not a document", ref)
	}
	freed := e.stacks.remove(ref)
	n := e.invalidate(ref)
	e.marks.forget(ref)
	e.logger.Debug("closed %s: freed %d groups, invalidated %d", ref, len(freed), n)
	e.publish(acc, TopicDocumentClosed, InvalidatedEvent{Document: ref, Groups: n})
	return nil
}

// IsUndoAvailable reports whether Undo(ref) would replay a group.
func (e *Engine) IsUndoAvailable(acc *Access, ref DocumentRef) bool {
	return e.available(acc, ref, Undo)
}

// IsRedoAvailable reports whether Redo(ref) would replay a group.
func (e *Engine) IsRedoAvailable(acc *Access, ref DocumentRef) bool {
	return e.available(acc, ref, Redo)
}

func (e *Engine) available(acc *Access, ref DocumentRef, dir Direction) bool {
	if e.check(acc) != nil {
		return false
	}
	h, ok := e.stacks.top(ref, dir)
	if !ok {
		return false
	}
	g, ok := e.arena.get(h)
	return ok && g.valid && g.IsUndoable() && e.stacks.isTopAll(h, g.stackRefs(), dir)
}

// Group returns the group addressed by h, if it is still alive.
func (e *Engine) Group(acc *Access, h GroupHandle) (*CommandGroup, bool) {
	if e.check(acc) != nil {
		return nil, false
	}
	return e.arena.get(h)
}

// UndoInfo returns ref's undo stack, oldest first.
func (e *Engine) UndoInfo(acc *Access, ref DocumentRef) []GroupInfo {
	return e.info(acc, ref, Undo)
}

// RedoInfo returns ref's redo stack, oldest first.
func (e *Engine) RedoInfo(acc *Access, ref DocumentRef) []GroupInfo {
	return e.info(acc, ref, Redo)
}

func (e *Engine) info(acc *Access, ref DocumentRef, dir Direction) []GroupInfo {
	if e.check(acc) != nil {
		return nil
	}
	hs := e.stacks.handles(ref, dir)
	result := make([]GroupInfo, 0, len(hs))
	for _, h := range hs {
		if g, ok := e.arena.get(h); ok {
			result = append(result, g.Info())
		}
	}
	return result
}

// MarkPhase returns the bracket state of ref and the name of its last mark.
func (e *Engine) MarkPhase(acc *Access, ref DocumentRef) (MarkPhase, string) {
	if e.check(acc) != nil {
		return MarkNone, ""
	}
	st := e.marks.state(ref)
	return st.phase, st.name
}

// Stats summarizes the engine's state.
type Stats struct {
	Groups    int
	Documents int
	Clock     uint64
}

// Stats returns a summary of the engine's state.
func (e *Engine) Stats(acc *Access) Stats {
	if e.check(acc) != nil {
		return Stats{}
	}
	docs := 0
	for _, ref := range e.stacks.refs() {
		if ref != GlobalRef {
			docs++
		}
	}
	return Stats{Groups: e.arena.len(), Documents: docs, Clock: e.clock}
}

// SetMaxDepth changes the per-stack limit, evicting the oldest groups.
func (e *Engine) SetMaxDepth(acc *Access, max int) error {
	if err := e.check(acc); err != nil {
		return err
	}
	if max <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", max)
	}
	e.maxDepth = max
	freed := e.stacks.setMaxDepth(max)
	e.logger.Info("max depth set to %d (evicted %d groups)", max, len(freed))
	return nil
}

// SetBulkThreshold changes the action count above which replay is batched.
func (e *Engine) SetBulkThreshold(acc *Access, n int) error {
	if err := e.check(acc); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("bulk threshold must not be negative, got %d", n)
	}
	e.bulkThreshold = n
	return nil
}

// Clear removes all history.
func (e *Engine) Clear(acc *Access) error {
	if err := e.check(acc); err != nil {
		return err
	}
	e.stacks.clear()
	e.marks = newMarkTracker()
	return nil
}

// Checkpoint represents a point in a document's history that can be returned to.
type Checkpoint struct {
	ref   DocumentRef
	depth int
}

// Checkpoint records the current undo depth of ref.
func (e *Engine) Checkpoint(acc *Access, ref DocumentRef) (Checkpoint, error) {
	if err := e.check(acc); err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{ref: ref, depth: e.stacks.depth(ref, Undo)}, nil
}

// UndoToCheckpoint undoes ref's groups until its undo depth is back at cp.
func (e *Engine) UndoToCheckpoint(acc *Access, cp Checkpoint) error {
	for {
		if err := e.check(acc); err != nil {
			return err
		}
		if e.stacks.depth(cp.ref, Undo) <= cp.depth {
			return nil
		}
		if err := e.Undo(acc, cp.ref); err != nil {
			if errors.Is(err, ErrEmptyStack) {
				return nil
			}
			return err
		}
	}
}
