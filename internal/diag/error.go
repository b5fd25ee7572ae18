package diag

import (
	"fmt"

	"go.uber.org/multierr"
)

// Error wraps a single malformed-input diagnostic as a Go error, so a pass
// that hits one mid-traversal can return it through a normal error-returning
// call chain instead of threading a Bag through every signature.
type Error struct {
	Diagnostic Diagnostic
}

func (e *Error) Error() string { return e.Diagnostic.String() }

// NewError builds an *Error from the given fields.
func NewError(code Code, at Location, msg string) *Error {
	return &Error{Diagnostic: Diagnostic{Severity: SevError, Code: code, Message: msg, At: at}}
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, at Location, format string, args ...any) *Error {
	return NewError(code, at, fmt.Sprintf(format, args...))
}

// Combine aggregates zero or more errors (nil entries are ignored) into a
// single error, in the style of a front end that keeps parsing after a
// syntax error: every malformed-input finding from one compilation attempt
// is reported together rather than stopping at the first one.
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}

// Append is the accumulator form of Combine, used when errors are
// discovered one at a time during a traversal.
func Append(into error, err error) error {
	return multierr.Append(into, err)
}
