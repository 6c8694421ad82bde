// Package ircerr carries internal invariant errors, distinct from the
// protocol and policy errors that result in numeric replies. Those
// never reach here; they're reported as numeric replies and nothing
// propagates past the handler that caught them. This package exists for
// the case a handler discovers the server's own state has gone
// inconsistent (a user known to be a channel member missing from the
// directory, a poisoned-lock-equivalent panic recovered mid command) and
// needs to abandon the current command without tearing down the
// connection.
package ircerr

import "github.com/pkg/errors"

// ServerError wraps an internal invariant violation, carrying the stack
// trace github.com/pkg/errors records where it is created. The
// dispatcher in internal/ircd does not create or check this type: it
// recovers panics, logs the recovered value with %v (no stack trace),
// and moves on to the next message on the same connection.
type ServerError struct {
	cause error
}

// New creates a ServerError with message msg, attaching a stack trace at
// the call site via github.com/pkg/errors.
func New(msg string) error {
	return ServerError{cause: errors.New(msg)}
}

// Wrap attaches msg as context to cause and marks it a ServerError.
func Wrap(cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return ServerError{cause: errors.Wrap(cause, msg)}
}

func (e ServerError) Error() string { return e.cause.Error() }

func (e ServerError) Cause() error { return e.cause }

// Is reports whether err is a ServerError.
func Is(err error) bool {
	_, ok := err.(ServerError)
	return ok
}
