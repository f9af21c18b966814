package document

import (
	"fmt"
	"sync"

	"github.com/dshills/undocore/internal/engine/history"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// IsEmpty reports whether the range covers no bytes.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// Len returns the number of bytes covered.
func (r Range) Len() int {
	return r.End - r.Start
}

// Document is an open text document.
type Document struct {
	mu sync.Mutex

	ref    history.DocumentRef
	name   string
	text   string
	cursor int

	revision  uint64
	committed uint64
	commits   int

	bulk          bool
	pending       bool
	notifications int
	closed        bool

	notify func(d *Document, revision uint64)
}

// Ref returns the document's stable id.
func (d *Document) Ref() history.DocumentRef { return d.ref }

// Name returns the document's name.
func (d *Document) Name() string { return d.name }

// Text returns the current content.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Len returns the content length in bytes.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.text)
}

// Cursor returns the caret offset.
func (d *Document) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// SetCursor moves the caret, clamped to the content.
func (d *Document) SetCursor(offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = clamp(offset, 0, len(d.text))
}

// Revision returns the number of changes applied so far.
func (d *Document) Revision() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revision
}

// IsCommitted reports whether every change has been committed.
func (d *Document) IsCommitted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed == d.revision
}

// Commits returns how many times the document was committed.
func (d *Document) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// InBulk reports whether change notification is suppressed.
func (d *Document) InBulk() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bulk
}

// Notifications returns how many change notifications were delivered.
func (d *Document) Notifications() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifications
}

// Replace replaces the bytes in r with text and returns the reversible edit.
func (d *Document) Replace(r Range, text string) (*Edit, error) {
	d.mu.Lock()
	cursorBefore := d.cursor
	old, err := d.applyLocked(r, text)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.cursor = r.Start + len(text)
	edit := &Edit{
		doc:          d,
		Range:        r,
		OldText:      old,
		NewText:      text,
		CursorBefore: cursorBefore,
		CursorAfter:  d.cursor,
	}
	rev := d.revision
	notify := d.takeNotificationLocked()
	d.mu.Unlock()

	if notify {
		d.fire(rev)
	}
	return edit, nil
}

// Insert inserts text at offset.
func (d *Document) Insert(offset int, text string) (*Edit, error) {
	return d.Replace(Range{Start: offset, End: offset}, text)
}

// Delete removes the bytes in r.
func (d *Document) Delete(r Range) (*Edit, error) {
	return d.Replace(r, "")
}

// Reload replaces the whole content outside of the history, as a reload
// from disk does. Callers must invalidate the document's history.
func (d *Document) Reload(text string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.text = text
	d.cursor = clamp(d.cursor, 0, len(text))
	d.revision++
	d.committed = d.revision
	rev := d.revision
	notify := d.takeNotificationLocked()
	d.mu.Unlock()

	if notify {
		d.fire(rev)
	}
	return nil
}

// replay applies an edit step during undo or redo, checking that the
// document still holds the expected text.
func (d *Document) replay(r Range, expect, text string, cursor int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if r.Start < 0 || r.End > len(d.text) || r.End < r.Start || d.text[r.Start:r.End] != expect {
		d.mu.Unlock()
		return fmt.Errorf("%s at [%d,%d): %w", d.name, r.Start, r.End, ErrContentMismatch)
	}
	if _, err := d.applyLocked(r, text); err != nil {
		d.mu.Unlock()
		return err
	}
	d.cursor = clamp(cursor, 0, len(d.text))
	rev := d.revision
	notify := d.takeNotificationLocked()
	d.mu.Unlock()

	if notify {
		d.fire(rev)
	}
	return nil
}

func (d *Document) applyLocked(r Range, text string) (string, error) {
	if d.closed {
		return "", ErrClosed
	}
	if r.Start < 0 || r.End < r.Start || r.End > len(d.text) {
		return "", fmt.Errorf("%s [%d,%d) of %d bytes: %w", d.name, r.Start, r.End, len(d.text), ErrRangeInvalid)
	}
	old := d.text[r.Start:r.End]
	d.text = d.text[:r.Start] + text + d.text[r.End:]
	d.revision++
	return old, nil
}

// takeNotificationLocked reports whether a change notification is due now.
// In bulk mode the notification is deferred until bulk mode ends.
func (d *Document) takeNotificationLocked() bool {
	if d.bulk {
		d.pending = true
		return false
	}
	d.notifications++
	return true
}

func (d *Document) setBulk(on bool) {
	d.mu.Lock()
	if d.bulk == on {
		d.mu.Unlock()
		return
	}
	d.bulk = on
	flush := !on && d.pending
	d.pending = false
	if flush {
		d.notifications++
	}
	rev := d.revision
	d.mu.Unlock()

	if flush {
		d.fire(rev)
	}
}

func (d *Document) commit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.committed = d.revision
	d.commits++
}

func (d *Document) fire(rev uint64) {
	if d.notify != nil {
		d.notify(d, rev)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
