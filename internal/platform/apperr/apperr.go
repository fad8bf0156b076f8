// Package apperr defines the discriminated error kinds returned by the
// engine's command services. Handlers map kinds to HTTP statuses at the
// boundary; services never return raw database errors to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation             Kind = "validation"
	KindInvalidTransition      Kind = "invalid_transition"
	KindVolumeExceeded         Kind = "volume_exceeded"
	KindIllegalComponent       Kind = "illegal_component"
	KindInsufficientSelection  Kind = "insufficient_selection"
	KindIncompleteTests        Kind = "incomplete_tests"
	KindConflict               Kind = "conflict"
	KindConcurrentModification Kind = "concurrent_modification"
	KindNotFound               Kind = "not_found"
)

// Error is a service-level error with a machine-readable kind.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Field names the offending input field for validation errors.
	Field string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// ValidationField reports an out-of-range or malformed input field.
func ValidationField(field, format string, args ...interface{}) *Error {
	e := New(KindValidation, format, args...)
	e.Field = field
	return e
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return New(KindInvalidTransition, format, args...)
}

func VolumeExceeded(format string, args ...interface{}) *Error {
	return New(KindVolumeExceeded, format, args...)
}

func IllegalComponent(format string, args ...interface{}) *Error {
	return New(KindIllegalComponent, format, args...)
}

func InsufficientSelection(format string, args ...interface{}) *Error {
	return New(KindInsufficientSelection, format, args...)
}

// IncompleteTests rejects an admission decision while assays are still
// pending. Unlike a terminal-status rejection the caller can retry
// after recording the missing results.
func IncompleteTests(format string, args ...interface{}) *Error {
	return New(KindIncompleteTests, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func ConcurrentModification(format string, args ...interface{}) *Error {
	return New(KindConcurrentModification, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the API contract promises.
// Unrecognized errors are treated as internal.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindVolumeExceeded, KindIllegalComponent, KindInsufficientSelection, KindIncompleteTests:
		return http.StatusUnprocessableEntity
	case KindInvalidTransition, KindConflict, KindConcurrentModification:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Payload renders the response body for err. Internal errors are masked
// so database details never leak to clients.
func Payload(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return map[string]interface{}{"error": e}
	}
	return map[string]interface{}{
		"error": &Error{Kind: "internal", Message: "internal server error"},
	}
}
