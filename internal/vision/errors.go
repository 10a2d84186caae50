package vision

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for sidecar calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the sidecar took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the sidecar rejected the input or returned
	// something unparseable
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the sidecar is down or overloaded
	ErrorOutage ErrorCategory = "outage"

	// ErrorContractMismatch indicates the sidecar does not serve the endpoint
	ErrorContractMismatch ErrorCategory = "contract_mismatch"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected failure
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a sidecar failure with its category.
type Error struct {
	Category   ErrorCategory
	Operation  string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("vision %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("vision %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  op,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category from err, or ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ErrorInternal
}
