package history

import "slices"

// Direction is the replay direction of a group.
type Direction int

const (
	// Undo reverts a group, visiting actions last to first.
	Undo Direction = iota
	// Redo reapplies a group, visiting actions first to last.
	Redo
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Undo {
		return "undo"
	}
	return "redo"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Undo {
		return Redo
	}
	return Undo
}

// DefaultBulkThreshold is the action count above which replay batches
// change notifications per document.
const DefaultBulkThreshold = 50

// bulkTracker brackets each contiguous run of actions touching a document
// with SetBulkMode(doc, true) / SetBulkMode(doc, false).
type bulkTracker struct {
	ws     Workspace
	active []DocumentRef
}

// advance is called before each action with the documents it touches.
func (b *bulkTracker) advance(docs []DocumentRef) {
	// Runs end for documents the current action no longer touches.
	kept := b.active[:0]
	for _, ref := range b.active {
		if slices.Contains(docs, ref) {
			kept = append(kept, ref)
			continue
		}
		b.ws.SetBulkMode(ref, false)
	}
	b.active = kept

	for _, ref := range docs {
		if ref == GlobalRef || slices.Contains(b.active, ref) {
			continue
		}
		b.ws.SetBulkMode(ref, true)
		b.active = append(b.active, ref)
	}
}

// finish clears every flag still set.
func (b *bulkTracker) finish() {
	for _, ref := range b.active {
		b.ws.SetBulkMode(ref, false)
	}
	b.active = nil
}

// replayGroup visits the group's actions in replay order. On the first
// failing action it stops, clears bulk flags and returns a *ReplayError.
// Documents of the group that are still open are committed either way.
func (e *Engine) replayGroup(g *CommandGroup, dir Direction) (err error) {
	g.replayed = true

	var bulk *bulkTracker
	if len(g.actions) > e.bulkThreshold {
		bulk = &bulkTracker{ws: e.ws}
		e.logger.Debug("bulk replay of %q (%d actions)", g.name, len(g.actions))
	}

	defer func() {
		if bulk != nil {
			bulk.finish()
		}
		e.commitDocuments(g)
	}()

	n := len(g.actions)
	for step := 0; step < n; step++ {
		i := step
		if dir == Undo {
			i = n - 1 - step
		}
		a := g.actions[i]
		if bulk != nil {
			bulk.advance(e.ws.DocumentsOf(a))
		}
		if aerr := runAction(a, dir); aerr != nil {
			return &ReplayError{Group: g.name, Direction: dir, Index: i, Err: aerr}
		}
	}
	return nil
}

// runAction applies one action, turning a panic into an error.
func runAction(a *Action, dir Direction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	if dir == Undo {
		return a.undo()
	}
	return a.redo()
}

func (e *Engine) commitDocuments(g *CommandGroup) {
	open := e.ws.OpenDocuments()
	for _, ref := range g.docs {
		if slices.Contains(open, ref) {
			e.ws.Commit(ref)
		}
	}
}
