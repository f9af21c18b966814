package document

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/undocore/internal/engine/history"
)

// Edit is a recorded replacement in one document. It captures everything
// needed to undo or redo the change.
type Edit struct {
	doc *Document

	// Range is the range that was replaced, in the document before the edit.
	Range Range
	// OldText is the text that was replaced.
	OldText string
	// NewText is the text that was inserted.
	NewText string

	// CursorBefore and CursorAfter are the caret offsets around the edit.
	CursorBefore int
	CursorAfter  int
}

// Document returns the edited document.
func (e *Edit) Document() *Document {
	return e.doc
}

// NewRange returns the range of the text after the edit.
func (e *Edit) NewRange() Range {
	return Range{Start: e.Range.Start, End: e.Range.Start + len(e.NewText)}
}

// IsInsert reports whether the edit is a pure insertion.
func (e *Edit) IsInsert() bool {
	return e.Range.IsEmpty() && len(e.NewText) > 0
}

// IsDelete reports whether the edit is a pure deletion.
func (e *Edit) IsDelete() bool {
	return !e.Range.IsEmpty() && len(e.NewText) == 0
}

// BytesDelta returns the change in document length.
func (e *Edit) BytesDelta() int {
	return len(e.NewText) - e.Range.Len()
}

// Invert returns an edit that reverses this one.
func (e *Edit) Invert() *Edit {
	return &Edit{
		doc:          e.doc,
		Range:        e.NewRange(),
		OldText:      e.NewText,
		NewText:      e.OldText,
		CursorBefore: e.CursorAfter,
		CursorAfter:  e.CursorBefore,
	}
}

// Undo restores the replaced text.
func (e *Edit) Undo() error {
	inv := e.Invert()
	return e.doc.replay(inv.Range, inv.OldText, inv.NewText, inv.CursorAfter)
}

// Redo reapplies the edit.
func (e *Edit) Redo() error {
	return e.doc.replay(e.Range, e.OldText, e.NewText, e.CursorAfter)
}

// Documents returns the edited document's ref.
func (e *Edit) Documents() []history.DocumentRef {
	return []history.DocumentRef{e.doc.ref}
}

// Description returns a human-readable description.
func (e *Edit) Description() string {
	n := utf8.RuneCountInString(e.NewText)
	switch {
	case e.IsInsert() && n <= 20:
		return fmt.Sprintf("Insert %q", e.NewText)
	case e.IsInsert():
		return fmt.Sprintf("Insert %d characters", n)
	case e.IsDelete():
		return fmt.Sprintf("Delete %d bytes", e.Range.Len())
	default:
		return fmt.Sprintf("Replace %d bytes with %d characters", e.Range.Len(), n)
	}
}
