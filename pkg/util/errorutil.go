package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the auth core.
const (
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeForbidden             = "FORBIDDEN"
	CodeInvalidCredential     = "INVALID_CREDENTIAL"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeOtpMismatch           = "OTP_MISMATCH"
	CodeOtpAttemptsExceeded   = "OTP_ATTEMPTS_EXCEEDED"
	CodeConfiguration         = "CONFIGURATION_ERROR"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
)

// uniformTokenMessage deliberately carries no detail about whether a lookup
// missed, hit an expired row, or hit a consumed row.
const uniformTokenMessage = "invalid or expired token"

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthenticated covers missing, malformed, or expired access credentials.
func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

// NewForbidden covers a valid credential with an insufficient role.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewInvalidCredential is the refresh-rotation failure. The message is
// uniform so callers cannot enumerate token state.
func NewInvalidCredential() error {
	return NewDomainError(CodeInvalidCredential, uniformTokenMessage, http.StatusUnauthorized, nil)
}

// NewInvalidOrExpiredToken is the reset/verification/otp lookup failure,
// same uniform message as NewInvalidCredential.
func NewInvalidOrExpiredToken() error {
	return NewDomainError(CodeInvalidOrExpiredToken, uniformTokenMessage, http.StatusBadRequest, nil)
}

// NewOtpMismatch is recoverable up to the configured attempt ceiling.
func NewOtpMismatch() error {
	return NewDomainError(CodeOtpMismatch, "incorrect code", http.StatusBadRequest, nil)
}

// NewOtpAttemptsExceeded is terminal for the token; the flow must restart.
func NewOtpAttemptsExceeded() error {
	return NewDomainError(CodeOtpAttemptsExceeded, "too many attempts", http.StatusGone, nil)
}

// NewConfigurationError marks a startup-fatal misconfiguration. It is never
// returned per request.
func NewConfigurationError(message string) error {
	return NewDomainError(CodeConfiguration, message, http.StatusInternalServerError, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
