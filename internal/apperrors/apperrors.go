package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers and HTTP handlers can react without
// string-matching messages.
type Kind int

const (
	KindValidation Kind = iota + 1 // malformed or out-of-range input
	KindConflict                   // duplicate write rejected by a uniqueness rule
	KindNotFound                   // referenced record does not exist
	KindCapacity                   // operation would exceed vehicle capacity
	KindState                      // operation illegal in the current lifecycle state
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindState:
		return "state"
	}
	return "unknown"
}

// Error is the single failure type returned by the services layer.
type Error struct {
	Kind   Kind
	Entity string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Detail)
}

func newf(kind Kind, entity, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

func Validation(entity, format string, args ...interface{}) *Error {
	return newf(KindValidation, entity, format, args...)
}

func Conflict(entity, format string, args ...interface{}) *Error {
	return newf(KindConflict, entity, format, args...)
}

func NotFound(entity, format string, args ...interface{}) *Error {
	return newf(KindNotFound, entity, format, args...)
}

func Capacity(entity, format string, args ...interface{}) *Error {
	return newf(KindCapacity, entity, format, args...)
}

func State(entity, format string, args ...interface{}) *Error {
	return newf(KindState, entity, format, args...)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsValidation(err error) bool { return Is(err, KindValidation) }
func IsConflict(err error) bool   { return Is(err, KindConflict) }
func IsNotFound(err error) bool   { return Is(err, KindNotFound) }
func IsCapacity(err error) bool   { return Is(err, KindCapacity) }
func IsState(err error) bool      { return Is(err, KindState) }

// Status maps a failure to the HTTP status the API layer responds with.
// Unknown errors map to 500.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindCapacity:
		return http.StatusConflict
	case KindState:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
