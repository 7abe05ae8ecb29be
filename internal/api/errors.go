package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes client errors.
type ErrorCode string

const (
	// ErrCodeTransport indicates the request never produced a response.
	ErrCodeTransport ErrorCode = "TRANSPORT"

	// ErrCodeUnauthorized indicates a missing or rejected bearer token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeNotFound indicates the resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeServer indicates a 5xx, 408 or 429 response.
	ErrCodeServer ErrorCode = "SERVER"

	// ErrCodeRejected indicates any other non-2xx response.
	ErrCodeRejected ErrorCode = "REJECTED"

	// ErrCodeDecode indicates a 2xx response with an unreadable body.
	ErrCodeDecode ErrorCode = "DECODE"
)

// Error is a failed marketplace call.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the call, e.g. "GET /cart".
	Op string

	// Status is the HTTP status, or 0 for transport failures.
	Status int

	// Message is the server's error message, if any.
	Message string

	// Err is the underlying cause for transport and decode failures.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %d: %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func codeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return ErrCodeServer
	default:
		return ErrCodeRejected
	}
}

// IsUnauthorized returns true if err is a rejected or missing credential.
// Uses errors.As to handle wrapped errors.
func IsUnauthorized(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeUnauthorized
	}
	return false
}

// IsNotFound returns true if the server answered 404.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeNotFound
	}
	return false
}

// IsTransient returns true if the call may succeed when retried unchanged.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeTransport || e.Code == ErrCodeServer
	}
	return false
}
