package driftbox

import "github.com/pkg/errors"

var (
	// ErrNotFound names the case where no entry is current for a path.
	// Lookup reports that case with a false second result, not with this
	// error; httpapi uses it as the body of its 404 response.
	ErrNotFound = errors.New("driftbox: not found")

	// ErrIncomplete is returned by Read when the Slab is, or becomes,
	// failed before the reader reaches the end of the written bytes.
	ErrIncomplete = errors.New("driftbox: incomplete")

	// ErrSinkClosed is returned by Read when the consumer goes away,
	// including when the caller's context is cancelled mid-read.
	ErrSinkClosed = errors.New("driftbox: sink closed")
)
