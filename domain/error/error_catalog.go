package error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an authentication failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindUserDisabled
	KindUserNotFound
	KindInvalidGrant
	KindTokenMalformed
	KindTokenSignatureInvalid
	KindTokenExpired
	KindTokenRevoked
	KindTokenUnverifiable
	KindInvalidToken
	KindMissingCredential
	KindForbiddenPath
	KindAccessDenied
	KindRateLimitExceeded
	KindValidation
	KindNotFound
)

var kindNames = map[Kind]string{
	KindInternal:              "Internal",
	KindInvalidCredentials:    "InvalidCredentials",
	KindUserDisabled:          "UserDisabled",
	KindUserNotFound:          "UserNotFound",
	KindInvalidGrant:          "InvalidGrant",
	KindTokenMalformed:        "TokenMalformed",
	KindTokenSignatureInvalid: "TokenSignatureInvalid",
	KindTokenExpired:          "TokenExpired",
	KindTokenRevoked:          "TokenRevoked",
	KindTokenUnverifiable:     "TokenUnverifiable",
	KindInvalidToken:          "InvalidToken",
	KindMissingCredential:     "MissingCredential",
	KindForbiddenPath:         "ForbiddenPath",
	KindAccessDenied:          "AccessDenied",
	KindRateLimitExceeded:     "RateLimitExceeded",
	KindValidation:            "Validation",
	KindNotFound:              "NotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// OAuth2 error codes written in the response body.
const (
	CodeInvalidGrant      = "invalid_grant"
	CodeInvalidToken      = "invalid_token"
	CodeInvalidRequest    = "invalid_request"
	CodeAccessDenied      = "access_denied"
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeServerError       = "server_error"
	CodeNotFound          = "not_found"
)

// AppError represents a structured application error
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	// RetryAfter is set in seconds for rate limiting rejections.
	RetryAfter int
	Cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError by kind so errors.Is works against the
// constructors below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewAppError creates a new application error
func NewAppError(kind Kind, message string, cause error) *AppError {
	code, status := classify(kind)
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

func classify(kind Kind) (string, int) {
	switch kind {
	case KindInvalidCredentials, KindUserDisabled, KindUserNotFound, KindInvalidGrant:
		return CodeInvalidGrant, http.StatusUnauthorized
	case KindTokenMalformed, KindTokenSignatureInvalid, KindTokenExpired, KindTokenUnverifiable, KindInvalidToken:
		return CodeInvalidToken, http.StatusUnauthorized
	case KindTokenRevoked:
		return CodeInvalidToken, http.StatusForbidden
	case KindMissingCredential:
		return CodeInvalidRequest, http.StatusUnauthorized
	case KindForbiddenPath, KindAccessDenied:
		return CodeAccessDenied, http.StatusForbidden
	case KindRateLimitExceeded:
		return CodeRateLimitExceeded, http.StatusTooManyRequests
	case KindValidation:
		return CodeInvalidRequest, http.StatusBadRequest
	case KindNotFound:
		return CodeNotFound, http.StatusNotFound
	default:
		return CodeServerError, http.StatusInternalServerError
	}
}

// Authentication errors

func ErrInvalidCredentials() *AppError {
	return NewAppError(KindInvalidCredentials, "invalid username or password", nil)
}

func ErrUserDisabled() *AppError {
	return NewAppError(KindUserDisabled, "user account is disabled", nil)
}

// ErrUserNotFound deliberately reads the same as ErrInvalidCredentials.
func ErrUserNotFound() *AppError {
	return NewAppError(KindUserNotFound, "invalid username or password", nil)
}

func ErrInvalidGrant(message string) *AppError {
	if message == "" {
		message = "invalid refresh token"
	}
	return NewAppError(KindInvalidGrant, message, nil)
}

// Token errors

func ErrTokenMalformed(cause error) *AppError {
	return NewAppError(KindTokenMalformed, "malformed token", cause)
}

func ErrTokenSignatureInvalid(cause error) *AppError {
	return NewAppError(KindTokenSignatureInvalid, "invalid token signature", cause)
}

func ErrTokenExpired() *AppError {
	return NewAppError(KindTokenExpired, "token expired, please re-login", nil)
}

func ErrTokenRevoked() *AppError {
	return NewAppError(KindTokenRevoked, "token invalidated, please re-login", nil)
}

func ErrTokenUnverifiable(cause error) *AppError {
	return NewAppError(KindTokenUnverifiable, "unable to verify token status", cause)
}

func ErrInvalidToken(cause error) *AppError {
	return NewAppError(KindInvalidToken, "invalid token", cause)
}

// Request errors

func ErrMissingCredential() *AppError {
	return NewAppError(KindMissingCredential, "missing credential", nil)
}

func ErrForbiddenPath(path string) *AppError {
	return NewAppError(KindForbiddenPath, fmt.Sprintf("access to %s is forbidden", path), nil)
}

func ErrAccessDenied(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(KindAccessDenied, message, nil)
}

// ErrRateLimitExceeded carries the reset window so callers can set Retry-After.
func ErrRateLimitExceeded(subject string, limit, resetSeconds int) *AppError {
	e := NewAppError(KindRateLimitExceeded,
		fmt.Sprintf("rate limit of %d requests exceeded for %s, retry in %d seconds", limit, subject, resetSeconds), nil)
	e.RetryAfter = resetSeconds
	return e
}

// ErrValidation aggregates field messages into a single description.
func ErrValidation(messages ...string) *AppError {
	return NewAppError(KindValidation, strings.Join(messages, ", "), nil)
}

// ErrNotFound is for management lookups. Sign-in paths use ErrUserNotFound.
func ErrNotFound(resource string) *AppError {
	return NewAppError(KindNotFound, resource+" not found", nil)
}

func ErrInternal(cause error) *AppError {
	return NewAppError(KindInternal, "internal server error", cause)
}

// From maps any error to an *AppError. Unknown errors are internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
