package history

import "slices"

// MarkPhase is the bracket state of a document.
type MarkPhase int

const (
	// MarkNone means no bracket has been opened on the document.
	MarkNone MarkPhase = iota
	// MarkStarted means a start mark was pushed and no finish mark yet.
	MarkStarted
	// MarkFinished means the last bracket on the document was closed.
	MarkFinished
)

// String returns the phase name.
func (p MarkPhase) String() string {
	switch p {
	case MarkNone:
		return "none"
	case MarkStarted:
		return "started"
	case MarkFinished:
		return "finished"
	default:
		return "unknown"
	}
}

type markState struct {
	phase MarkPhase
	name  string
}

// markTracker follows start/finish marks per document.
type markTracker struct {
	docs map[DocumentRef]markState
}

func newMarkTracker() *markTracker {
	return &markTracker{docs: make(map[DocumentRef]markState)}
}

func (t *markTracker) state(ref DocumentRef) markState {
	return t.docs[ref]
}

// bracketRefs returns the stacks g's marks apply to. Marks of a group with
// no documents close whatever brackets are open, or else apply to the global
// stack, which is where such a group lives.
func (t *markTracker) bracketRefs(g *CommandGroup) []DocumentRef {
	if len(g.docs) > 0 {
		return g.docs
	}
	if g.finishMark() != nil {
		if open := t.open(); len(open) > 0 {
			return open
		}
	}
	return []DocumentRef{GlobalRef}
}

// open returns the refs with a start mark and no finish mark yet.
func (t *markTracker) open() []DocumentRef {
	var refs []DocumentRef
	for ref, st := range t.docs {
		if st.phase == MarkStarted {
			refs = append(refs, ref)
		}
	}
	slices.Sort(refs)
	return refs
}

// observe advances the tracker for refs, the bracket stacks of a committed
// group. It returns the refs on which a finish mark arrived without a start.
func (t *markTracker) observe(g *CommandGroup, refs []DocumentRef) []DocumentRef {
	start, finish := g.startMark(), g.finishMark()
	if start == nil && finish == nil {
		return nil
	}
	var unmatched []DocumentRef
	for _, ref := range refs {
		st := t.docs[ref]
		if start != nil {
			st = markState{phase: MarkStarted, name: start.name}
		}
		if finish != nil {
			if st.phase != MarkStarted {
				unmatched = append(unmatched, ref)
			}
			st = markState{phase: MarkFinished, name: finish.name}
		}
		t.docs[ref] = st
	}
	return unmatched
}

func (t *markTracker) forget(ref DocumentRef) {
	delete(t.docs, ref)
}

// compose applies bracket composition to a group whose trailing action is a
// finish mark. The undo stack of each bracket ref is scanned newest first:
// a global group promotes g under its name, a group holding a start mark
// ends the scan without promotion.
func (e *Engine) compose(g *CommandGroup, refs []DocumentRef) {
	if g.trailingFinishMark() == nil {
		return
	}
	for _, ref := range refs {
		undo := e.stacks.handles(ref, Undo)
		for i := len(undo) - 1; i >= 0; i-- {
			anc, ok := e.arena.get(undo[i])
			if !ok {
				continue
			}
			if anc.global {
				g.promote(anc.name)
				e.markBracketStart(undo[:i+1])
				e.logger.Debug("promoted %q to global", g.name)
				return
			}
			if anc.ContainsStartMark() {
				break
			}
		}
	}
}

// markBracketStart flags the start mark of the bracket containing the given
// stack prefix as global, so redo of the bracket asks for confirmation.
func (e *Engine) markBracketStart(undo []GroupHandle) {
	for i := len(undo) - 1; i >= 0; i-- {
		g, ok := e.arena.get(undo[i])
		if !ok {
			continue
		}
		if m := g.startMark(); m != nil {
			m.global = true
			return
		}
	}
}
