// FILE: launchconf/errors.go
package launchconf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by parsing, merging, and loading operations.
// Callers are expected to match them with errors.Is; the wrapped message
// carries the offending input.
var (
	// ErrMalformedPath reports a dotted path that violates the path grammar:
	// empty path, empty segment, or a segment containing characters outside
	// [A-Za-z0-9_].
	ErrMalformedPath = errors.New("malformed path")

	// ErrMalformedOverride reports an override argument with no key/value
	// separator at nesting depth zero.
	ErrMalformedOverride = errors.New("malformed override")

	// ErrMalformedLiteral reports a value that opens like a structured
	// literal ('[' or '{') but does not parse as one.
	ErrMalformedLiteral = errors.New("malformed literal")

	// ErrPathConflict reports an attempt to descend through a scalar or
	// sequence node while applying an override.
	ErrPathConflict = errors.New("path conflict")

	// ErrDocumentNotFound reports a base document path that does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// ConflictError details a failed descent during merge: Path names the node
// that blocked the walk and Found is its kind. It unwraps to ErrPathConflict.
type ConflictError struct {
	Path  Path
	Found Kind
}

func (e *ConflictError) Error() string {
	if e.Path.Len() == 0 {
		return fmt.Sprintf("path conflict at document root: cannot descend into %s node", e.Found)
	}
	return fmt.Sprintf("path conflict at %q: cannot descend into %s node", e.Path.String(), e.Found)
}

func (e *ConflictError) Unwrap() error {
	return ErrPathConflict
}
