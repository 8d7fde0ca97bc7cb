// Package apperr classifies failures so every transport reports them the same
// way. Services return *Error values; httpkit turns the Kind into a status
// code and the Kafka listener decides from it whether a message is settled.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the target does not exist in the active tenant.
	KindNotFound
	// KindValidation: missing scope, malformed payload or an invalid reference.
	KindValidation
	// KindConflict: duplicate data or an identity bound elsewhere.
	KindConflict
	// KindForbidden: the target is outside the caller's empresa scope.
	KindForbidden
	KindUnauthorized
	KindBadRequest
	// KindInternal: wiring defects such as a request without tenant.
	KindInternal
	// KindUnavailable: the identity provider or another upstream did not answer.
	KindUnavailable
)

// Error carries a Kind, a client-safe message and optional response details.
// Op names the operation for logs; Err keeps the cause for errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the Kind to a response code. Forbidden stays 403 so an
// out-of-scope employee is never reported as missing.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches data rendered next to the message, such as the
// identity an employee is already linked to.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// Unavailable wraps the transport failure that made an upstream unreachable.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// GetKind returns the Kind of the first *Error in the chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
