package document

import (
	"maps"
	"slices"
	"sync"

	"github.com/dshills/undocore/internal/engine/history"
)

// ChangeListener is called after a document's content changes, outside of
// bulk mode. Changes made in bulk mode produce one call when it ends.
type ChangeListener func(d *Document, revision uint64)

// Snapshot is the editor state captured around a command group: the caret
// of every open document.
type Snapshot struct {
	Cursors map[history.DocumentRef]int
}

// Workspace holds the open documents and implements history.Workspace.
type Workspace struct {
	mu        sync.RWMutex
	docs      map[history.DocumentRef]*Document
	next      history.DocumentRef
	listeners []ChangeListener
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		docs: make(map[history.DocumentRef]*Document),
	}
}

// OnChange registers a change listener.
func (w *Workspace) OnChange(l ChangeListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// Open creates a document. Refs start at 1 and are never reused.
func (w *Workspace) Open(name, text string) (*Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.docs {
		if d.name == name {
			return nil, ErrDuplicateName
		}
	}
	w.next++
	d := &Document{
		ref:    w.next,
		name:   name,
		text:   text,
		notify: w.dispatch,
	}
	w.docs[d.ref] = d
	return d, nil
}

// Close closes a document.
func (w *Workspace) Close(ref history.DocumentRef) error {
	w.mu.Lock()
	d, ok := w.docs[ref]
	delete(w.docs, ref)
	w.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Get returns the open document with ref.
func (w *Workspace) Get(ref history.DocumentRef) (*Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d, ok := w.docs[ref]
	return d, ok
}

// Lookup returns the open document called name.
func (w *Workspace) Lookup(name string) (*Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, d := range w.docs {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// Documents returns the open documents ordered by ref.
func (w *Workspace) Documents() []*Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	refs := slices.Sorted(maps.Keys(w.docs))
	docs := make([]*Document, len(refs))
	for i, ref := range refs {
		docs[i] = w.docs[ref]
	}
	return docs
}

func (w *Workspace) dispatch(d *Document, rev uint64) {
	w.mu.RLock()
	listeners := slices.Clone(w.listeners)
	w.mu.RUnlock()
	for _, l := range listeners {
		l(d, rev)
	}
}

// DocumentsOf implements history.Workspace.
func (w *Workspace) DocumentsOf(a *history.Action) []history.DocumentRef {
	return a.Documents()
}

// OpenDocuments implements history.Workspace.
func (w *Workspace) OpenDocuments() []history.DocumentRef {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Sorted(maps.Keys(w.docs))
}

// Commit implements history.Workspace.
func (w *Workspace) Commit(ref history.DocumentRef) {
	if d, ok := w.Get(ref); ok {
		d.commit()
	}
}

// SetBulkMode implements history.Workspace.
func (w *Workspace) SetBulkMode(ref history.DocumentRef, on bool) {
	if d, ok := w.Get(ref); ok {
		d.setBulk(on)
	}
}

// SnapshotEditorState implements history.Workspace.
func (w *Workspace) SnapshotEditorState() history.EditorSnapshot {
	s := Snapshot{Cursors: make(map[history.DocumentRef]int)}
	for _, d := range w.Documents() {
		s.Cursors[d.ref] = d.Cursor()
	}
	return s
}

// RestoreEditorState implements history.StateRestorer. Carets of documents
// that are no longer open are ignored.
func (w *Workspace) RestoreEditorState(s history.EditorSnapshot) {
	snap, ok := s.(Snapshot)
	if !ok {
		return
	}
	for ref, offset := range snap.Cursors {
		if d, ok := w.Get(ref); ok {
			d.SetCursor(offset)
		}
	}
}
