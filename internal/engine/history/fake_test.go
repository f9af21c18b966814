package history

import (
	"maps"
	"slices"
	"testing"
)

const (
	docA DocumentRef = 1
	docB DocumentRef = 2
)

type bulkCall struct {
	ref DocumentRef
	on  bool
}

// fakeWorkspace records every collaborator call.
type fakeWorkspace struct {
	open     map[DocumentRef]bool
	bulk     []bulkCall
	commits  map[DocumentRef]int
	snapshot EditorSnapshot
	restored []EditorSnapshot
}

func newFakeWorkspace(refs ...DocumentRef) *fakeWorkspace {
	w := &fakeWorkspace{open: map[DocumentRef]bool{}, commits: map[DocumentRef]int{}}
	for _, ref := range refs {
		w.open[ref] = true
	}
	return w
}

func (w *fakeWorkspace) DocumentsOf(a *Action) []DocumentRef { return a.Documents() }

func (w *fakeWorkspace) OpenDocuments() []DocumentRef {
	return slices.Sorted(maps.Keys(w.open))
}

func (w *fakeWorkspace) Commit(ref DocumentRef) { w.commits[ref]++ }

func (w *fakeWorkspace) SetBulkMode(ref DocumentRef, on bool) {
	w.bulk = append(w.bulk, bulkCall{ref: ref, on: on})
}

func (w *fakeWorkspace) SnapshotEditorState() EditorSnapshot { return w.snapshot }

func (w *fakeWorkspace) RestoreEditorState(s EditorSnapshot) {
	w.restored = append(w.restored, s)
}

// fakeAction logs its replays into a shared journal.
type fakeAction struct {
	name    string
	docs    []DocumentRef
	journal *[]string
	onUndo  func() error
	onRedo  func() error
}

func (a *fakeAction) Undo() error {
	if a.onUndo != nil {
		if err := a.onUndo(); err != nil {
			return err
		}
	}
	*a.journal = append(*a.journal, "undo:"+a.name)
	return nil
}

func (a *fakeAction) Redo() error {
	if a.onRedo != nil {
		if err := a.onRedo(); err != nil {
			return err
		}
	}
	*a.journal = append(*a.journal, "redo:"+a.name)
	return nil
}

func (a *fakeAction) Documents() []DocumentRef { return a.docs }

// textDoc and textEdit model a single-string document for round-trip tests.
type textDoc struct {
	ref  DocumentRef
	text string
}

type textEdit struct {
	doc           *textDoc
	before, after string
}

func (e *textEdit) Undo() error { e.doc.text = e.before; return nil }
func (e *textEdit) Redo() error { e.doc.text = e.after; return nil }
func (e *textEdit) Documents() []DocumentRef {
	return []DocumentRef{e.doc.ref}
}

// apply performs the edit and returns it as an action.
func (d *textDoc) apply(after string) *Action {
	e := &textEdit{doc: d, before: d.text, after: after}
	d.text = after
	return NewEdit(e)
}

// run executes fn with exclusive access and fails the test on error.
func run(t *testing.T, e *Engine, fn func(acc *Access)) {
	t.Helper()
	err := e.WithExclusiveAccess(func(acc *Access) error {
		fn(acc)
		return nil
	})
	if err != nil {
		t.Fatalf("WithExclusiveAccess: %v", err)
	}
}

// commitGroup records actions into a new group and commits it.
func commitGroup(acc *Access, e *Engine, name string, actions []*Action, opts ...GroupOption) (GroupHandle, error) {
	b, err := e.BeginGroup(acc, name, opts...)
	if err != nil {
		return GroupHandle{}, err
	}
	for _, a := range actions {
		if err := b.Record(a); err != nil {
			return GroupHandle{}, err
		}
	}
	return b.Commit(acc)
}

func edits(journal *[]string, doc DocumentRef, names ...string) []*Action {
	actions := make([]*Action, len(names))
	for i, n := range names {
		actions[i] = NewEdit(&fakeAction{name: n, docs: []DocumentRef{doc}, journal: journal})
	}
	return actions
}
