package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers. Structural codes are rejected
// before any write; state-conflict codes mean the precondition no longer
// holds and must not be retried blindly.
const (
	CodeCycleDetected     = "cycle_detected"
	CodeDuplicateEdge     = "duplicate_edge"
	CodeOrphanReference   = "orphan_reference"
	CodeCloneFailed       = "clone_failed"
	CodeInvalidTransition = "invalid_transition"
	CodeAlreadyInProgress = "already_in_progress"
	CodeNotSessionOwner   = "not_session_owner"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeUnauthorized      = "unauthorized"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func CycleDetected(err error) *Error {
	return New(http.StatusConflict, CodeCycleDetected, err)
}

func DuplicateEdge(err error) *Error {
	return New(http.StatusConflict, CodeDuplicateEdge, err)
}

func OrphanReference(err error) *Error {
	return New(http.StatusBadRequest, CodeOrphanReference, err)
}

func CloneFailed(err error) *Error {
	return New(http.StatusInternalServerError, CodeCloneFailed, err)
}

func InvalidTransition(err error) *Error {
	return New(http.StatusConflict, CodeInvalidTransition, err)
}

func AlreadyInProgress(err error) *Error {
	return New(http.StatusConflict, CodeAlreadyInProgress, err)
}

func NotSessionOwner(err error) *Error {
	return New(http.StatusForbidden, CodeNotSessionOwner, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func RateLimited(err error) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimited, err)
}

// HasCode reports whether err (or anything it wraps) is an *Error
// carrying the given code.
func HasCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, defaulting to 500 for
// anything that is not an *Error (persistence failures pass through
// unclassified).
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code, or empty for unclassified errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
