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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Admission gate rejections. Each maps to exactly one user-facing reason;
// gate order is enforced by the admission service, not here.
var (
	ErrGeofenceViolation   = New("GEOFENCE_VIOLATION", http.StatusForbidden, "you are too far from the teacher")
	ErrLocationUnavailable = New("LOCATION_UNAVAILABLE", http.StatusBadRequest, "location check failed, try again")
	ErrDeviceConflict      = New("DEVICE_CONFLICT", http.StatusForbidden, "this device is locked to another student")
	ErrUnknownStudent      = New("UNKNOWN_STUDENT", http.StatusNotFound, "invalid student id")
	ErrClassMismatch       = New("CLASS_MISMATCH", http.StatusUnprocessableEntity, "wrong class for this student id")
	ErrInvalidSessionCode  = New("INVALID_SESSION_CODE", http.StatusUnprocessableEntity, "invalid or expired class code")
	ErrInvalidToken        = New("INVALID_TOKEN", http.StatusUnprocessableEntity, "invalid or used token, rescan the QR code")
	ErrDuplicateAttendance = New("DUPLICATE_ATTENDANCE", http.StatusConflict, "attendance already marked today")
	ErrDeviceCoolingDown   = New("DEVICE_COOLING_DOWN", http.StatusTooManyRequests, "device is in its cooldown window")

	// All unlock-link failures (malformed, bad signature, expired) collapse
	// to this one message so the response does not reveal which check failed.
	ErrInvalidUnlockLink = New("INVALID_UNLOCK_LINK", http.StatusUnauthorized, "invalid or expired unlock link")
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
