package history

// GroupBuilder collects the actions of one logical command.
//
// Usage:
//
//	b, _ := engine.BeginGroup(acc, "Rename", history.Global())
//	b.Record(history.NewEdit(edit))
//	h, err := b.Commit(acc)
type GroupBuilder struct {
	engine      *Engine
	name        string
	cfg         groupConfig
	actions     []*Action
	stateBefore EditorSnapshot
	closed      bool
}

// BeginGroup starts a new group. The editor state is captured now and
// becomes the group's before-state.
func (e *Engine) BeginGroup(acc *Access, name string, opts ...GroupOption) (*GroupBuilder, error) {
	if err := e.check(acc); err != nil {
		return nil, err
	}
	b := &GroupBuilder{
		engine:      e,
		name:        name,
		stateBefore: e.ws.SnapshotEditorState(),
	}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b, nil
}

// Record appends an action. An action belongs to exactly one group.
func (b *GroupBuilder) Record(a *Action) error {
	if b.closed {
		return ErrBuilderClosed
	}
	if a == nil {
		return nil
	}
	if a.owned {
		return ErrActionShared
	}
	a.owned = true
	b.actions = append(b.actions, a)
	return nil
}

// Len returns the number of recorded actions.
func (b *GroupBuilder) Len() int {
	return len(b.actions)
}

// Commit builds the group and pushes it onto the stacks of every document
// it touches. The editor state is captured again as the after-state.
func (b *GroupBuilder) Commit(acc *Access) (GroupHandle, error) {
	e := b.engine
	if err := e.check(acc); err != nil {
		return GroupHandle{}, err
	}
	if b.closed {
		return GroupHandle{}, ErrBuilderClosed
	}
	if len(b.actions) == 0 {
		return GroupHandle{}, ErrEmptyGroup
	}
	b.closed = true

	g := newCommandGroup(b.name, b.actions, collectDocuments(e.ws, b.actions), b.cfg)
	g.stateBefore = b.stateBefore
	g.stateAfter = e.ws.SnapshotEditorState()
	b.actions = nil
	return e.push(acc, g), nil
}

// Discard drops the builder without recording anything. Changes already
// applied to documents stay applied.
func (b *GroupBuilder) Discard() {
	for _, a := range b.actions {
		a.owned = false
	}
	b.actions = nil
	b.closed = true
}

// Transaction runs fn with a fresh builder and commits it when fn succeeds.
// A failing fn discards the builder and its error is returned. A builder
// left empty by fn is discarded without error.
func (e *Engine) Transaction(acc *Access, name string, fn func(b *GroupBuilder) error, opts ...GroupOption) (GroupHandle, error) {
	b, err := e.BeginGroup(acc, name, opts...)
	if err != nil {
		return GroupHandle{}, err
	}
	if err := fn(b); err != nil {
		b.Discard()
		return GroupHandle{}, err
	}
	if b.Len() == 0 {
		b.Discard()
		return GroupHandle{}, nil
	}
	return b.Commit(acc)
}
