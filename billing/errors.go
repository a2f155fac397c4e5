package billing

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the terminal errors surfaced to callers. Retries are
// fully contained inside the per-operation executors; callers only ever see
// one terminal success or one terminal typed error.
type ErrorCode uint8

const (
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodeNetwork is a transport failure talking to the vendor or the
	// backend.
	ErrorCodeNetwork

	// ErrorCodeStoreProblem is a generic vendor store problem.
	ErrorCodeStoreProblem

	// ErrorCodeProductNotAvailable means the vendor reported the product as
	// unavailable for purchase. Never retried.
	ErrorCodeProductNotAvailable

	// ErrorCodeInvalidReceipt means every receipt in a batch failed
	// canonical product resolution.
	ErrorCodeInvalidReceipt

	// ErrorCodeInvalidCredentials is a backend credential rejection.
	ErrorCodeInvalidCredentials

	// ErrorCodeUnexpectedBackendResponse is a malformed backend success
	// payload.
	ErrorCodeUnexpectedBackendResponse
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNetwork:
		return "network_error"
	case ErrorCodeStoreProblem:
		return "store_problem"
	case ErrorCodeProductNotAvailable:
		return "product_not_available_for_purchase"
	case ErrorCodeInvalidReceipt:
		return "invalid_receipt"
	case ErrorCodeInvalidCredentials:
		return "invalid_credentials"
	case ErrorCodeUnexpectedBackendResponse:
		return "unexpected_backend_response"
	default:
		return "unknown"
	}
}

// Error is the typed error surfaced by billing operations.
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, underlying error) *Error {
	return &Error{Code: code, Message: message, Underlying: underlying}
}

// CodeOf extracts the ErrorCode from err, or ErrorCodeUnknown if err is not
// a billing error.
func CodeOf(err error) ErrorCode {
	var billingErr *Error
	if errors.As(err, &billingErr) {
		return billingErr.Code
	}
	return ErrorCodeUnknown
}
