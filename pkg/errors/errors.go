package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
)

// Merkle / ledger error codes
const (
	ErrDuplicateRecord ErrorCode = iota + 2000
	ErrRecordNotFound
	ErrEmptyTree
	ErrBlockOutOfRange
	ErrPayloadInvalid
)

// Access contract error codes. requestAccess denials each carry their own
// code so callers can branch on the exact reason.
const (
	ErrInvalidRole ErrorCode = iota + 3000
	ErrRoleNotAssigned
	ErrRoleNotAssignable
	ErrSessionTooLong
	ErrJustificationRequired
	ErrTwoFactorRequired
	ErrDataTypeDenied
	ErrPatientScopeDenied
	ErrConsentDenied
	ErrTokenNotFound
	ErrTokenNotActive
	ErrContractNotFound
	ErrUnknownContractType
	ErrUnknownOperation
)

// Error constructors
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Code: ErrUnauthorized, Message: message}
}

// CodeOf extracts the ErrorCode from err, or 0 when err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
