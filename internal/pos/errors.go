package pos

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes domain errors so the API layer can map them to
// response codes without string matching.
type ErrorCode string

const (
	// CodeNotFound indicates a referenced transaction, line, category,
	// or item does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidState indicates an attempted mutation on a transaction
	// that is not Open.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeInvalidInput indicates a malformed quantity, amount, or date
	// range.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInsufficientPayment indicates paid_amount below the
	// transaction total at close time.
	CodeInsufficientPayment ErrorCode = "INSUFFICIENT_PAYMENT"
)

// Error is a domain error with a machine-readable code. Store failures are
// NOT wrapped in Error - they propagate as opaque wrapped errors so callers
// can tell a rule violation from an infrastructure fault.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFoundf creates a CodeNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef creates a CodeInvalidState error.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputf creates a CodeInvalidInput error.
func InvalidInputf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// InsufficientPaymentf creates a CodeInsufficientPayment error.
func InsufficientPaymentf(format string, args ...any) *Error {
	return &Error{Code: CodeInsufficientPayment, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the domain error code from err, unwrapping as needed.
// Returns "" if err is not a domain error (i.e. a store failure).
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is a CodeNotFound domain error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsInvalidState reports whether err is a CodeInvalidState domain error.
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsInvalidInput reports whether err is a CodeInvalidInput domain error.
func IsInvalidInput(err error) bool { return CodeOf(err) == CodeInvalidInput }

// IsInsufficientPayment reports whether err is a CodeInsufficientPayment
// domain error.
func IsInsufficientPayment(err error) bool { return CodeOf(err) == CodeInsufficientPayment }
