// Package catalog holds the pieces shared by every catalog domain package:
// the error taxonomy surfaced to callers and the unit-of-work contract that
// write operations run under.
package catalog

import (
	"github.com/go-faster/errors"
)

// Error kinds. Every domain rule violation unwraps to exactly one of them;
// anything that does not is an internal failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

// Error is a domain rule violation with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound returns an error of kind ErrNotFound.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Conflict returns an error of kind ErrConflict.
func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// BadRequest returns an error of kind ErrBadRequest.
func BadRequest(msg string) *Error {
	return &Error{Kind: ErrBadRequest, Message: msg}
}

// KindOf reports the kind of err, or nil for internal failures.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrBadRequest} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
