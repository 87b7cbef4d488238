// Package errs defines the structured error kinds shared across the core.
// Callers match on Kind with errors.Is; the wrapped cause stays reachable
// through errors.Unwrap.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for recovery decisions.
type Kind string

const (
	// UnknownGame: the caller asked about a game not in the registry.
	UnknownGame Kind = "unknown_game"
	// SchemaMismatch: a draw payload failed rules validation.
	SchemaMismatch Kind = "schema_mismatch"
	// InsufficientHistory: the archive window is shorter than the minimum.
	InsufficientHistory Kind = "insufficient_history"
	// NetworkFailure: a fetch failed after all retries.
	NetworkFailure Kind = "network_failure"
	// ParseFailure: a raw payload could not be interpreted.
	ParseFailure Kind = "parse_failure"
	// StorageFailure: a database IO error; aborts the enclosing operation.
	StorageFailure Kind = "storage_failure"
	// CancelRequested: cooperative cancellation was acknowledged.
	CancelRequested Kind = "cancel_requested"
	// UniqueExhausted: unique-grid redraw budget ran out.
	UniqueExhausted Kind = "unique_exhausted"
)

// Error carries a kind, the operation that failed, and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error or sentinel with the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	if t, ok := target.(sentinel); ok {
		return e.Kind == Kind(t)
	}
	return false
}

// sentinel lets each Kind double as an errors.Is target.
type sentinel Kind

func (s sentinel) Error() string { return string(s) }

// AsTarget returns an errors.Is target for the kind.
func (k Kind) AsTarget() error { return sentinel(k) }

// New builds an error with a kind, operation name and message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to a cause. Returns nil for a nil
// cause, as the interface type, so callers may return the result directly.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
