// Package apperr defines the error kinds shared by every domain package and
// their HTTP status mapping.
package apperr

import (
	"errors"
	"net/http"
)

// Kinds. Domain errors wrap exactly one of these.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication required")
	ErrAuthorization  = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrCapacity       = errors.New("capacity reached")
	ErrAccessDenied   = errors.New("access denied")
	ErrSignature      = errors.New("invalid signature")
	ErrProvider       = errors.New("payment provider error")
	ErrInternal       = errors.New("internal server error")
)

// Error carries a user-visible message together with its kind.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Status returns the HTTP status for err based on its kind.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrCapacity), errors.Is(err, ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization), errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a client. Errors without a known kind
// are reported as internal errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	for _, kind := range []error{
		ErrValidation, ErrAuthentication, ErrAuthorization, ErrNotFound,
		ErrConflict, ErrCapacity, ErrAccessDenied, ErrSignature, ErrProvider,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrInternal.Error()
}

// Known reports whether err belongs to one of the kinds above.
func Known(err error) bool {
	return Status(err) != http.StatusInternalServerError || errors.Is(err, ErrProvider)
}
