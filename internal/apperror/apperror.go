// Package apperror defines the closed set of failure kinds the API reports
// and how each maps onto an HTTP status.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	DuplicateEmail      Kind = "DuplicateEmail"
	InvalidCredentials  Kind = "InvalidCredentials"
	InvalidOrExpiredOtp Kind = "InvalidOrExpiredOtp"
	MissingField        Kind = "MissingField"
	Validation          Kind = "Validation"
	Unauthenticated     Kind = "Unauthenticated"
	InvalidSession      Kind = "InvalidSession"
	InvalidOldPassword  Kind = "InvalidOldPassword"
	PasswordMismatch    Kind = "PasswordMismatch"
	InvalidEmail        Kind = "InvalidEmail"
	NotFound            Kind = "NotFound"
	Conflict            Kind = "Conflict"
	Internal            Kind = "Internal"
)

// Status returns the HTTP status for k. DuplicateEmail answers 200 with
// success:false, which existing clients depend on.
func (k Kind) Status() int {
	switch k {
	case DuplicateEmail:
		return http.StatusOK
	case InvalidCredentials, InvalidOrExpiredOtp, MissingField, Validation,
		InvalidOldPassword, PasswordMismatch, InvalidEmail:
		return http.StatusBadRequest
	case Unauthenticated, InvalidSession:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to err. The message defaults to err's own text.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf resolves the kind of any error; errors without one are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
