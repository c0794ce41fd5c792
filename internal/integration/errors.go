package integration

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for external checks.
type ErrorCategory string

const (
	// ErrorTimeout indicates the check exceeded its time bound
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the service returned a missing or malformed result
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the service is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorInternal indicates an unexpected failure, including panics
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a check failure with its normalized category.
type Error struct {
	Category   ErrorCategory
	Check      Check
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("check %s [%s]: %s: %v", e.Check, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("check %s [%s]: %s", e.Check, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized check error.
func NewError(category ErrorCategory, check Check, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Check:      check,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category of err. Deadline errors are timeouts;
// anything uncategorized is internal.
func CategoryOf(err error) ErrorCategory {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// ErrServiceUnavailable is returned by verifiers whose backing service is down.
var ErrServiceUnavailable = errors.New("service unavailable")
