package history

import (
	"slices"

	"github.com/google/uuid"
)

// ConfirmationPolicy controls whether replaying a group asks the user first.
type ConfirmationPolicy int

const (
	// ConfirmDefault asks only for global groups.
	ConfirmDefault ConfirmationPolicy = iota
	// ConfirmAlways always asks.
	ConfirmAlways
	// ConfirmNever never asks, even for global groups (bracket rules still apply).
	ConfirmNever
)

// String returns the policy name.
func (p ConfirmationPolicy) String() string {
	switch p {
	case ConfirmDefault:
		return "default"
	case ConfirmAlways:
		return "always"
	case ConfirmNever:
		return "never"
	default:
		return "unknown"
	}
}

// ParseConfirmationPolicy parses a policy name. Unknown names map to ConfirmDefault.
func ParseConfirmationPolicy(s string) ConfirmationPolicy {
	switch s {
	case "always":
		return ConfirmAlways
	case "never":
		return ConfirmNever
	default:
		return ConfirmDefault
	}
}

// CommandGroup is one undo/redo unit: an ordered batch of actions recorded as
// a single logical edit. Its action list never changes after construction.
type CommandGroup struct {
	id          uuid.UUID
	name        string
	actions     []*Action
	docs        []DocumentRef
	global      bool
	transparent bool
	policy      ConfirmationPolicy
	stateBefore EditorSnapshot
	stateAfter  EditorSnapshot
	timestamp   uint64
	valid       bool
	replayed    bool
}

func newCommandGroup(name string, actions []*Action, docs []DocumentRef, cfg groupConfig) *CommandGroup {
	return &CommandGroup{
		id:          uuid.New(),
		name:        name,
		actions:     actions,
		docs:        docs,
		global:      cfg.global,
		transparent: cfg.transparent,
		policy:      cfg.policy,
		valid:       true,
	}
}

// ID returns the group's unique id.
func (g *CommandGroup) ID() uuid.UUID { return g.id }

// Name returns the logical command name.
func (g *CommandGroup) Name() string { return g.name }

// Actions returns a copy of the group's actions in recording order.
func (g *CommandGroup) Actions() []*Action { return slices.Clone(g.actions) }

// Len returns the number of actions.
func (g *CommandGroup) Len() int { return len(g.actions) }

// Documents returns the sorted set of documents the group affects.
func (g *CommandGroup) Documents() []DocumentRef { return slices.Clone(g.docs) }

// IsGlobal reports whether the group is treated as project-wide.
func (g *CommandGroup) IsGlobal() bool { return g.global }

// IsTransparent reports whether the group replays together with its
// visible neighbor instead of on its own.
func (g *CommandGroup) IsTransparent() bool { return g.transparent }

// ConfirmationPolicy returns the group's confirmation policy.
func (g *CommandGroup) ConfirmationPolicy() ConfirmationPolicy { return g.policy }

// Timestamp returns the engine-assigned sequence number.
func (g *CommandGroup) Timestamp() uint64 { return g.timestamp }

// IsValid reports whether the group may still be replayed.
func (g *CommandGroup) IsValid() bool { return g.valid }

// StateBefore returns the editor state captured when the group began.
func (g *CommandGroup) StateBefore() EditorSnapshot { return g.stateBefore }

// StateAfter returns the editor state captured when the group was committed.
func (g *CommandGroup) StateAfter() EditorSnapshot { return g.stateAfter }

// SetStateBefore replaces the before-snapshot. Only allowed before the first replay.
func (g *CommandGroup) SetStateBefore(s EditorSnapshot) error {
	if g.replayed {
		return ErrStateFrozen
	}
	g.stateBefore = s
	return nil
}

// SetStateAfter replaces the after-snapshot. Only allowed before the first replay.
func (g *CommandGroup) SetStateAfter(s EditorSnapshot) error {
	if g.replayed {
		return ErrStateFrozen
	}
	g.stateAfter = s
	return nil
}

// IsUndoable reports whether the group can be replayed.
func (g *CommandGroup) IsUndoable() bool {
	for _, a := range g.actions {
		if a.kind == KindNonUndoable {
			return false
		}
	}
	return true
}

// Affects reports whether the group touches ref.
func (g *CommandGroup) Affects(ref DocumentRef) bool {
	_, found := slices.BinarySearch(g.docs, ref)
	return found
}

// ContainsStartMark reports whether the group holds a start mark.
func (g *CommandGroup) ContainsStartMark() bool { return g.startMark() != nil }

// ContainsFinishMark reports whether the group holds a finish mark.
func (g *CommandGroup) ContainsFinishMark() bool { return g.finishMark() != nil }

func (g *CommandGroup) startMark() *Action {
	for _, a := range g.actions {
		if a.kind == KindStartMark {
			return a
		}
	}
	return nil
}

func (g *CommandGroup) finishMark() *Action {
	for _, a := range g.actions {
		if a.kind == KindFinishMark {
			return a
		}
	}
	return nil
}

func (g *CommandGroup) trailingFinishMark() *Action {
	if len(g.actions) == 0 {
		return nil
	}
	last := g.actions[len(g.actions)-1]
	if last.kind != KindFinishMark {
		return nil
	}
	return last
}

// IsInsideStartFinishGroup resolves whether replay is inside a bracketed run
// after this group is replayed. Equal numbers of start and finish marks
// (including none) keep currentlyInside. Otherwise the answer depends on the
// direction: undo enters a bracket at its finish mark, redo at its start mark.
func (g *CommandGroup) IsInsideStartFinishGroup(isUndo, currentlyInside bool) bool {
	starts, finishes := 0, 0
	for _, a := range g.actions {
		switch a.kind {
		case KindStartMark:
			starts++
		case KindFinishMark:
			finishes++
		}
	}
	if starts == finishes {
		return currentlyInside
	}
	if isUndo {
		return finishes > starts
	}
	return starts > finishes
}

// ShouldAskConfirmation reports whether replaying the group in the given
// direction needs user confirmation.
func (g *CommandGroup) ShouldAskConfirmation(redo bool) bool {
	if g.shouldAskForBracket(redo) {
		return true
	}
	return g.policy == ConfirmAlways || (g.policy != ConfirmNever && g.global)
}

func (g *CommandGroup) shouldAskForBracket(redo bool) bool {
	if redo {
		if m := g.startMark(); m != nil {
			return m.global
		}
		return false
	}
	if m := g.finishMark(); m != nil {
		return m.global
	}
	return false
}

// stackRefs returns every stack the group is pushed to.
func (g *CommandGroup) stackRefs() []DocumentRef {
	refs := slices.Clone(g.docs)
	if g.global || len(g.docs) != 1 {
		refs = append(refs, GlobalRef)
	}
	return refs
}

func (g *CommandGroup) invalidate() {
	g.valid = false
}

// promote turns the group global under the ancestor's name.
func (g *CommandGroup) promote(name string) {
	g.global = true
	g.name = name
	if m := g.finishMark(); m != nil {
		m.global = true
	}
}

// Info returns a read-only description of the group.
func (g *CommandGroup) Info() GroupInfo {
	return GroupInfo{
		ID:          g.id,
		Name:        g.name,
		Timestamp:   g.timestamp,
		Documents:   slices.Clone(g.docs),
		Actions:     len(g.actions),
		Global:      g.global,
		Transparent: g.transparent,
		Valid:       g.valid,
		Undoable:    g.IsUndoable(),
	}
}

// GroupInfo provides read-only info about a group.
// Used for displaying undo/redo history to users.
type GroupInfo struct {
	ID          uuid.UUID
	Name        string
	Timestamp   uint64
	Documents   []DocumentRef
	Actions     int
	Global      bool
	Transparent bool
	Valid       bool
	Undoable    bool
}

// collectDocuments returns the sorted, de-duplicated documents of actions.
func collectDocuments(ws Workspace, actions []*Action) []DocumentRef {
	var docs []DocumentRef
	for _, a := range actions {
		for _, ref := range ws.DocumentsOf(a) {
			if ref != GlobalRef {
				docs = append(docs, ref)
			}
		}
	}
	slices.Sort(docs)
	return slices.Compact(docs)
}
