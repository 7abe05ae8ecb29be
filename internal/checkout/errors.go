package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoginRequired is returned by Begin when the session is not
	// authenticated. The transaction is closed.
	ErrLoginRequired = errors.New("login required")

	// ErrSubmissionInFlight is returned by PlaceOrder while a submission
	// is already running for this transaction.
	ErrSubmissionInFlight = errors.New("order submission already in flight")

	// ErrClosed is returned by every operation after Abandon or a failed
	// auth check.
	ErrClosed = errors.New("checkout transaction closed")

	// ErrInvalidState is returned when an operation is not legal in the
	// current status.
	ErrInvalidState = errors.New("invalid checkout state")
)

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeMissingFields indicates required fields are empty.
	ErrCodeMissingFields ValidationErrorCode = "MISSING_FIELDS"

	// ErrCodeEmptyCart indicates there is nothing to order.
	ErrCodeEmptyCart ValidationErrorCode = "EMPTY_CART"
)

// ValidationError reports why an order cannot be placed yet.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Fields names each missing field, in form order.
	Fields []string
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case ErrCodeEmptyCart:
		return "validation: cart is empty"
	case ErrCodeMissingFields:
		return fmt.Sprintf("validation: missing %s", strings.Join(e.Fields, ", "))
	default:
		return fmt.Sprintf("validation: %s", e.Code)
	}
}

// IsValidationError returns true if err is a *ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalidState(op string, s Status) error {
	return fmt.Errorf("%s in status %s: %w", op, s, ErrInvalidState)
}
