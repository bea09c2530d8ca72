package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones still match their sentinel.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
)

// Scheduling errors. NotFound and Conflict values are expected outcomes for callers.
var (
	ErrScheduleNotFound   = New("SCHEDULE_NOT_FOUND", http.StatusNotFound, "teaching schedule not found")
	ErrRoomNotFound       = New("ROOM_NOT_FOUND", http.StatusNotFound, "room not found")
	ErrAllocationNotFound = New("ALLOCATION_NOT_FOUND", http.StatusNotFound, "allocation not found")
	ErrDisciplineNotFound = New("DISCIPLINE_NOT_FOUND", http.StatusNotFound, "discipline offering not found")

	ErrRoomConflict      = New("ROOM_CONFLICT", http.StatusConflict, "room already booked for this slot")
	ErrProfessorConflict = New("PROFESSOR_CONFLICT", http.StatusConflict, "professor already scheduled for this slot")
	ErrCohortConflict    = New("COHORT_CONFLICT", http.StatusConflict, "cohort already scheduled for this slot")
	ErrRoomUnavailable   = New("ROOM_UNAVAILABLE", http.StatusConflict, "room is occupied")
	ErrAllocationExists  = New("ALLOCATION_EXISTS", http.StatusConflict, "allocation already exists")
	ErrScheduleExists    = New("SCHEDULE_EXISTS", http.StatusConflict, "professor already teaches this offering in the term")
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "cancelled allocations cannot change")
	ErrConcurrentUpdate  = New("CONCURRENT_UPDATE", http.StatusConflict, "request lost a race with a concurrent update, retry it")

	ErrInvalidShift     = New("INVALID_SHIFT", http.StatusBadRequest, "unknown shift")
	ErrInvalidStartTime = New("INVALID_START_TIME", http.StatusBadRequest, "start time is not a slot of the shift")
	ErrInvalidLoad      = New("INVALID_LOAD", http.StatusBadRequest, "load does not fit in the shift")
	ErrInvalidStatus    = New("INVALID_STATUS", http.StatusBadRequest, "invalid allocation status")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Internal wraps err as an opaque internal failure with the given message.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}
