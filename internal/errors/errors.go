package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError is the only error type that crosses the service boundary.
// Code and Message are safe for clients; Err is for logs.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so a wrapped
// ErrInternal still satisfies errors.Is(err, ErrInternal).
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError attaches cause to a copy of domainErr
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Error codes
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInvalidOrExpiredToken  = "INVALID_OR_EXPIRED_TOKEN"
	CodeInvalidOrExpiredReset  = "INVALID_OR_EXPIRED_RESET_TOKEN"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeAccountDisabled        = "ACCOUNT_DISABLED"
	CodeNotFound               = "NOT_FOUND"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
)

// Predefined domain errors
var (
	ErrValidation = NewDomainError(CodeValidation, "request validation failed")

	// Credential errors
	ErrEmailAlreadyRegistered     = NewDomainError(CodeEmailAlreadyRegistered, "email already registered")
	ErrInvalidCredentials         = NewDomainError(CodeInvalidCredentials, "incorrect email or password")
	ErrInvalidOrExpiredToken      = NewDomainError(CodeInvalidOrExpiredToken, "invalid or expired token")
	ErrInvalidOrExpiredResetToken = NewDomainError(CodeInvalidOrExpiredReset, "invalid or expired reset token")
	ErrUnauthenticated            = NewDomainError(CodeUnauthenticated, "could not validate credentials")
	ErrAccountDisabled            = NewDomainError(CodeAccountDisabled, "account is disabled")

	// Resource errors
	ErrNotFound    = NewDomainError(CodeNotFound, "resource not found")
	ErrRateLimited = NewDomainError(CodeRateLimited, "too many requests")

	// System errors
	ErrInternal           = NewDomainError(CodeInternal, "internal server error")
	ErrServiceUnavailable = NewDomainError(CodeServiceUnavailable, "service unavailable")
)

func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

var httpStatus = map[string]int{
	CodeValidation:             http.StatusUnprocessableEntity,
	CodeEmailAlreadyRegistered: http.StatusBadRequest,
	CodeInvalidOrExpiredReset:  http.StatusBadRequest,
	CodeInvalidCredentials:     http.StatusUnauthorized,
	CodeInvalidOrExpiredToken:  http.StatusUnauthorized,
	CodeUnauthenticated:        http.StatusUnauthorized,
	CodeAccountDisabled:        http.StatusForbidden,
	CodeNotFound:               http.StatusNotFound,
	CodeRateLimited:            http.StatusTooManyRequests,
	CodeInternal:               http.StatusInternalServerError,
	CodeServiceUnavailable:     http.StatusServiceUnavailable,
}

// ToHTTPStatus is the single place a domain error becomes a status code.
// Anything that is not a DomainError is a 500.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := httpStatus[GetErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetErrorMessage returns the client-safe message for err. A wrapped cause
// is never exposed.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Message
	}
	return ErrInternal.Message
}

func GetErrorCode(err error) string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code
	}
	return CodeInternal
}
