package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes shared across all packages. Security-relevant ambiguity
// (user existence, which OAuth check failed) is collapsed into a single
// code before it crosses the service boundary; the wrapped cause stays
// attached for logging.
const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Credential errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountDeactivated ErrorCode = "ACCOUNT_DEACTIVATED"
	ErrCodePasswordComplexity ErrorCode = "PASSWORD_COMPLEXITY"

	// Token errors
	ErrCodeTokenInvalidOrExpired ErrorCode = "TOKEN_INVALID_OR_EXPIRED"
	ErrCodeTokenReused           ErrorCode = "TOKEN_REUSED"

	// Two-factor errors
	ErrCodeInvalidTwoFactorCode  ErrorCode = "INVALID_TWO_FACTOR_CODE"
	ErrCodeBackupCodeAlreadyUsed ErrorCode = "BACKUP_CODE_ALREADY_USED"
	ErrCodeTwoFactorNotEnabled   ErrorCode = "TWO_FACTOR_NOT_ENABLED"
	ErrCodeTwoFactorNotSetUp     ErrorCode = "TWO_FACTOR_NOT_SET_UP"

	// Subsystem errors
	ErrCodeFeatureDisabled            ErrorCode = "FEATURE_DISABLED"
	ErrCodeSocialAccountAlreadyLinked ErrorCode = "SOCIAL_ACCOUNT_ALREADY_LINKED"

	// OAuth errors. Deliberately a single code for every redemption
	// failure so callers cannot probe which check tripped.
	ErrCodeOAuthExchangeFailed ErrorCode = "OAUTH_EXCHANGE_FAILED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns ErrCodeInternal if the error is not a structured Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodePasswordComplexity, ErrCodeOAuthExchangeFailed:
		return http.StatusBadRequest

	case ErrCodeInvalidCredentials, ErrCodeTokenInvalidOrExpired, ErrCodeTokenReused,
		ErrCodeInvalidTwoFactorCode, ErrCodeBackupCodeAlreadyUsed:
		return http.StatusUnauthorized

	case ErrCodeAccountDeactivated, ErrCodeFeatureDisabled:
		return http.StatusForbidden

	case ErrCodeNotFound, ErrCodeTwoFactorNotSetUp, ErrCodeTwoFactorNotEnabled:
		return http.StatusNotFound

	case ErrCodeConflict, ErrCodeAlreadyExists, ErrCodeSocialAccountAlreadyLinked:
		return http.StatusConflict

	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// InvalidCredentials creates the generic bad-credentials error. The same
// value is returned for unknown users and wrong passwords so the two are
// indistinguishable to callers.
func InvalidCredentials() *Error {
	return New(ErrCodeInvalidCredentials, "invalid credentials")
}

// AccountDeactivated creates a deactivated-account error carrying the
// stored reason when one exists.
func AccountDeactivated(reason string) *Error {
	e := New(ErrCodeAccountDeactivated, "account deactivated")
	if reason != "" {
		e.WithDetail("reason", reason)
	}
	return e
}

// TokenInvalidOrExpired creates the single error category surfaced for any
// signature, issuer, audience or expiry failure on either token type.
func TokenInvalidOrExpired() *Error {
	return New(ErrCodeTokenInvalidOrExpired, "invalid or expired token")
}

// TokenReused creates the refresh-token replay error. Callers are expected
// to have already revoked the whole session family when returning this.
func TokenReused() *Error {
	return New(ErrCodeTokenReused, "refresh token reuse detected")
}

// FeatureDisabled creates an error for an operation that requires an
// optional subsystem that was not configured in.
func FeatureDisabled(feature string) *Error {
	return Newf(ErrCodeFeatureDisabled, "feature not enabled: %s", feature)
}

// OAuthExchangeFailed creates the generic OAuth redemption error. The
// underlying cause is wrapped for logging but never exposed.
func OAuthExchangeFailed(cause error) *Error {
	return Wrap(cause, ErrCodeOAuthExchangeFailed, "authorization code exchange failed")
}

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// AlreadyExists creates an "already exists" error
func AlreadyExists(resourceType, identifier string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s already exists: %s", resourceType, identifier)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, reason)
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
