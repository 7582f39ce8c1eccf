// Package apperr holds the sentinel errors shared by the services and mapped
// to HTTP statuses by the handlers.
package apperr

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error carries a client-facing message on top of a sentinel kind.
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

// New returns an error that matches kind under errors.Is and prints msg.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Message returns the client-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
