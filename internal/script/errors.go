package script

import "errors"

// Errors returned by the script runtime.
var (
	// ErrClosed is returned when using a closed runtime.
	ErrClosed = errors.New("script runtime is closed")

	// ErrInvalidScript is returned when a chunk does not return a table
	// holding redo and undo functions.
	ErrInvalidScript = errors.New("script must return a table with redo and undo functions")

	// ErrNotFound is returned when looking up an unknown script.
	ErrNotFound = errors.New("script not found")

	// ErrTimeout is returned when a call exceeds the runtime's timeout.
	ErrTimeout = errors.New("script execution timeout")
)
