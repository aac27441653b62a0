// Package errors defines the typed failures surfaced by the lifecycle engine
// and their mapping onto HTTP responses.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInternal          Code = "INTERNAL"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeEmptyCart         Code = "EMPTY_CART"
	CodeAlreadyPaid       Code = "ALREADY_PAID"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeGateway           Code = "GATEWAY"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
)

// Error is a domain failure carrying a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels usable with errors.Is.
var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrEmptyCart         = &Error{Code: CodeEmptyCart}
	ErrAlreadyPaid       = &Error{Code: CodeAlreadyPaid}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrGateway           = &Error{Code: CodeGateway}
	ErrUnavailable       = &Error{Code: CodeUnavailable}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that keeps cause in the chain.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(message string) *Error { return New(CodeValidation, message) }

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func EmptyCart(message string) *Error { return New(CodeEmptyCart, message) }

func AlreadyPaid(message string) *Error { return New(CodeAlreadyPaid, message) }

func InvalidTransition(message string) *Error { return New(CodeInvalidTransition, message) }

func Gateway(message string, cause error) *Error { return Wrap(CodeGateway, message, cause) }

func Unavailable(message string, cause error) *Error { return Wrap(CodeUnavailable, message, cause) }

// GetCode extracts the error code from any error.
// Returns CodeInternal if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// Retryable reports whether the caller may retry the operation unchanged.
func Retryable(err error) bool {
	switch GetCode(err) {
	case CodeGateway, CodeUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch GetCode(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeEmptyCart:
		return http.StatusUnprocessableEntity
	case CodeAlreadyPaid, CodeInvalidTransition:
		return http.StatusConflict
	case CodeGateway:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a client. Internal
// faults never leak their detail.
func PublicMessage(err error) string {
	var e *Error
	if !stderrors.As(err, &e) || e.Code == CodeInternal {
		return "internal server error"
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}
