package document

import "errors"

// Errors returned by document operations.
var (
	// ErrRangeInvalid indicates a range outside the document or with end < start.
	ErrRangeInvalid = errors.New("invalid range")

	// ErrContentMismatch indicates the document no longer holds the text an
	// edit expects, so the edit cannot be replayed.
	ErrContentMismatch = errors.New("document content does not match edit")

	// ErrClosed indicates the document was closed.
	ErrClosed = errors.New("document is closed")

	// ErrNotFound indicates no open document has the requested ref or name.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateName indicates a document with the same name is already open.
	ErrDuplicateName = errors.New("document name already open")
)
