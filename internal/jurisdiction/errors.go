package jurisdiction

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by collaborator APIs that resolve a name or
// geometry handle that does not exist.
var ErrNotFound = eris.New("jurisdiction: not found")

// LoadError reports an unreadable source or a source missing required data.
// It aborts the run.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("jurisdiction: load %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// GeometryPredicateError reports a failed geometry operation on a single
// jurisdiction pair. The pair is skipped; the run continues.
type GeometryPredicateError struct {
	Op  string
	A   string
	B   string
	Err error
}

func (e *GeometryPredicateError) Error() string {
	return fmt.Sprintf("jurisdiction: %s(%s, %s): %v", e.Op, e.A, e.B, e.Err)
}

func (e *GeometryPredicateError) Unwrap() error { return e.Err }

// ValidationError reports a malformed tax-rate entry for a jurisdiction.
type ValidationError struct {
	Name   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("jurisdiction: invalid tax rates for %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("jurisdiction: invalid %s rate for %q: %s", e.Field, e.Name, e.Reason)
}
