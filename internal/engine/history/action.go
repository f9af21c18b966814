package history

import (
	"fmt"
	"slices"
	"strconv"
)

// DocumentRef is a stable identifier for a document.
// Refs are handed out by the document collaborator and never reused.
type DocumentRef uint64

// GlobalRef names the project-wide stack that orders global groups and
// groups spanning more than one document.
const GlobalRef DocumentRef = 0

// String returns a printable form of the ref.
func (r DocumentRef) String() string {
	if r == GlobalRef {
		return "global"
	}
	return "doc#" + strconv.FormatUint(uint64(r), 10)
}

// EditorSnapshot is editor state (carets, selections, scroll) captured around
// a group. The engine stores and hands it back without looking inside.
type EditorSnapshot any

// Reversible is an elementary change supplied by callers.
type Reversible interface {
	// Undo reverts the change.
	Undo() error
	// Redo reapplies the change.
	Redo() error
	// Documents returns the documents the change touches.
	Documents() []DocumentRef
}

// ActionKind discriminates the Action variants.
type ActionKind int

const (
	// KindEdit is an ordinary reversible edit.
	KindEdit ActionKind = iota
	// KindStartMark opens a bracketed multi-group operation.
	KindStartMark
	// KindFinishMark closes a bracketed multi-group operation.
	KindFinishMark
	// KindNonUndoable marks a group as recorded but not replayable.
	KindNonUndoable
)

// String returns the kind name.
func (k ActionKind) String() string {
	switch k {
	case KindEdit:
		return "edit"
	case KindStartMark:
		return "start"
	case KindFinishMark:
		return "finish"
	case KindNonUndoable:
		return "non-undoable"
	default:
		return "unknown"
	}
}

// Action is one entry of a command group.
type Action struct {
	kind   ActionKind
	name   string
	edit   Reversible
	docs   []DocumentRef
	global bool
	owned  bool
}

// NewEdit wraps a reversible change.
func NewEdit(r Reversible) *Action {
	return &Action{kind: KindEdit, edit: r}
}

// NewStartMark creates the opening bracket of a composite operation.
func NewStartMark(name string, docs ...DocumentRef) *Action {
	return &Action{kind: KindStartMark, name: name, docs: slices.Clone(docs)}
}

// NewFinishMark creates the closing bracket of a composite operation.
func NewFinishMark(name string, docs ...DocumentRef) *Action {
	return &Action{kind: KindFinishMark, name: name, docs: slices.Clone(docs)}
}

// NewNonUndoable creates a marker that makes its group non-replayable.
func NewNonUndoable(docs ...DocumentRef) *Action {
	return &Action{kind: KindNonUndoable, docs: slices.Clone(docs)}
}

// Kind returns the action variant.
func (a *Action) Kind() ActionKind {
	return a.kind
}

// Name returns the logical command name carried by a mark.
func (a *Action) Name() string {
	return a.name
}

// IsGlobal reports whether a mark was promoted to global scope.
func (a *Action) IsGlobal() bool {
	return a.global
}

// Edit returns the wrapped change of a KindEdit action.
func (a *Action) Edit() Reversible {
	return a.edit
}

// Documents returns the documents the action touches.
func (a *Action) Documents() []DocumentRef {
	if a.kind == KindEdit {
		if a.edit == nil {
			return nil
		}
		return a.edit.Documents()
	}
	return a.docs
}

// String describes the action.
func (a *Action) String() string {
	if a.name != "" {
		return fmt.Sprintf("%s(%s)", a.kind, a.name)
	}
	return a.kind.String()
}

func (a *Action) undo() error {
	switch a.kind {
	case KindEdit:
		return a.edit.Undo()
	case KindStartMark, KindFinishMark, KindNonUndoable:
		return nil
	default:
		return fmt.Errorf("unknown action kind %d", a.kind)
	}
}

func (a *Action) redo() error {
	switch a.kind {
	case KindEdit:
		return a.edit.Redo()
	case KindStartMark, KindFinishMark, KindNonUndoable:
		return nil
	default:
		return fmt.Errorf("unknown action kind %d", a.kind)
	}
}
