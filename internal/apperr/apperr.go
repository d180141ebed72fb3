// Package apperr provides the error taxonomy shared by every component of
// the pipeline orchestration engine: validation, not-found, upstream,
// conflict and fatal failures, each carrying the HTTP status it maps to.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets from the
// service's error handling design.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindUpstream   Kind = "UPSTREAM"
	KindConflict   Kind = "CONFLICT"
	KindFatal      Kind = "FATAL"
)

// Error is the common shape for every taxonomy member. It wraps an
// optional cause so errors.Is/errors.As keep working across the boundary.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error

	// UpstreamStatus and UpstreamReason are populated only for Kind ==
	// KindUpstream, per the {upstream_status, upstream_reason} body shape
	// required by the error handling design.
	UpstreamStatus int
	UpstreamReason string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status the transport layer should use.
func (e *Error) StatusCode() int { return e.Status }

// Is lets errors.Is(err, target) match any *Error target of the same
// Kind, the way the teacher's StandardError matches on Code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Validation builds a 400/422-class error. Callers pick the status because
// the spec uses both 400 (malformed input) and 422 (semantically invalid,
// e.g. a run requiring a prior run that never happened).
func Validation(status int, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: status, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a 404 error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: 404, Message: fmt.Sprintf(format, args...)}
}

// Upstream builds a 502 error carrying the collaborator's own status code
// and reason, per §7's UpstreamError body shape.
func Upstream(upstreamStatus int, upstreamReason string, cause error) *Error {
	return &Error{
		Kind:           KindUpstream,
		Status:         502,
		Message:        fmt.Sprintf("upstream failure: %s", upstreamReason),
		Cause:          cause,
		UpstreamStatus: upstreamStatus,
		UpstreamReason: upstreamReason,
	}
}

// Conflict builds a 409 error, reserved for contention on a single
// pipeline identifier under the try-lock/fail-fast policy from §5.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Status: 409, Message: fmt.Sprintf(format, args...)}
}

// Fatal builds a 500 error for an internal invariant violation that must
// not be reached in normal operation.
func Fatal(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Status: 500, Message: fmt.Sprintf(format, args...)}
}

// As extracts an *Error from err, the way callers convert an arbitrary
// gateway failure into the taxonomy at the orchestrator boundary.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Wrap annotates err with a taxonomy member, preserving err as the cause,
// mirroring the teacher's errors.Wrap(err, target) helper.
func Wrap(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Cause: cause}
}
