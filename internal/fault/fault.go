// Package fault defines the error taxonomy shared across the pipeline.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation and retry decisions.
type Kind string

// Failure kinds.
const (
	InvalidRequest Kind = "INVALID_REQUEST" // caller error, never retried
	QuotaExceeded  Kind = "QUOTA_EXCEEDED"  // too many outstanding uploads
	Expired        Kind = "EXPIRED"         // pending upload past its window
	NotFound       Kind = "NOT_FOUND"
	OrphanJob      Kind = "ORPHAN_JOB" // source pending upload is gone; logged, not retried
	Transient      Kind = "TRANSIENT"  // dependency hiccup; retried with backoff
	DeadLetter     Kind = "DEAD_LETTER"
	Internal       Kind = "INTERNAL"
)

// Error carries a kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind. Returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or Internal for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether err should be requeued rather than dropped
// or dead-lettered. Unclassified errors are retried so that no stage
// fails open on a surprise.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Transient, Internal:
		return true
	}
	return false
}
