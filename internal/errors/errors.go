// Package errors defines the structured failures surfaced at the layout
// service boundary. Every domain error carries a Kind so callers can branch
// with errors.Is and the HTTP layer can pick a status without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a ServiceError.
type Kind string

const (
	KindDuplicateID    Kind = "duplicate_id"
	KindNotFound       Kind = "not_found"
	KindDivisionByZero Kind = "division_by_zero"
	KindMalformedInput Kind = "malformed_input"
	KindIOFailure      Kind = "io_failure"
	KindRateLimited    Kind = "rate_limited"
)

// Sentinels usable with errors.Is.
var (
	ErrDuplicateID    = &ServiceError{Kind: KindDuplicateID}
	ErrNotFound       = &ServiceError{Kind: KindNotFound}
	ErrDivisionByZero = &ServiceError{Kind: KindDivisionByZero}
	ErrMalformedInput = &ServiceError{Kind: KindMalformedInput}
	ErrIOFailure      = &ServiceError{Kind: KindIOFailure}
	ErrRateLimited    = &ServiceError{Kind: KindRateLimited}
)

// ServiceError is a domain failure with an associated HTTP status.
type ServiceError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches any ServiceError of the same kind, so the package sentinels
// work as targets regardless of message.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, status int, err error, format string, args ...any) *ServiceError {
	return &ServiceError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
		Err:        err,
	}
}

// DuplicateID reports that an entity with the given id is already registered.
func DuplicateID(entity string, id int) *ServiceError {
	return newError(KindDuplicateID, http.StatusBadRequest, nil, "%s id %d already exists", entity, id)
}

// NotFound reports a reference to an unknown entity.
func NotFound(entity string, id int) *ServiceError {
	return newError(KindNotFound, http.StatusNotFound, nil, "%s %d not found", entity, id)
}

// DivisionByZero reports a share computation against a zero-shaped store.
func DivisionByZero(storeID int) *ServiceError {
	return newError(KindDivisionByZero, http.StatusInternalServerError, nil,
		"store %d declares zero module slots; share is undefined", storeID)
}

// MalformedInput reports invalid or missing request fields.
func MalformedInput(format string, args ...any) *ServiceError {
	return newError(KindMalformedInput, http.StatusBadRequest, nil, format, args...)
}

// WrapMalformed reports undecodable input, keeping the decoder error.
func WrapMalformed(err error, format string, args ...any) *ServiceError {
	return newError(KindMalformedInput, http.StatusBadRequest, err, format, args...)
}

// IOFailure reports a read/write failure on a snapshot file or archive.
func IOFailure(err error, format string, args ...any) *ServiceError {
	return newError(KindIOFailure, http.StatusInternalServerError, err, format, args...)
}

// RateLimitExceeded reports a client sending requests faster than its limit allows.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(KindRateLimited, http.StatusTooManyRequests, nil,
		"rate limit exceeded: %d requests per %s", limit, window)
}

// As finds the first ServiceError in err's chain.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HTTPStatusOf maps err to a response status. Errors without a kind are
// treated as internal failures.
func HTTPStatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if svcErr, ok := As(err); ok && svcErr.HTTPStatus != 0 {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	if svcErr, ok := As(err); ok {
		return svcErr.Kind
	}
	return ""
}
