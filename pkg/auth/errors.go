package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthorisationError is the base error for the authorisation subsystem.
// All typed errors in this package embed it so callers can branch on the
// family with errors.As and still get a machine-readable code plus an
// HTTP-analog status.
type AuthorisationError struct {
	Code    string
	Status  int
	Message string
}

// NewAuthorisationError creates a generic authorisation error (500-analog),
// typically wrapping a validation failure with a human-readable message.
func NewAuthorisationError(format string, args ...interface{}) *AuthorisationError {
	return &AuthorisationError{
		Code:    "authorisation_error",
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AuthorisationError) Error() string {
	return e.Message
}

// NotFoundError is returned on lookup misses (404-analog).
type NotFoundError struct {
	AuthorisationError
}

// NewNotFoundError creates a NotFoundError with a formatted message.
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{AuthorisationError{
		Code:    "not_found",
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
	}}
}

// ForbiddenAccess is returned when the caller is authenticated but not
// entitled to the operation (403-analog). Terminal, non-retryable.
type ForbiddenAccess struct {
	AuthorisationError
}

// NewForbiddenAccess creates a ForbiddenAccess error with a formatted message.
func NewForbiddenAccess(format string, args ...interface{}) *ForbiddenAccess {
	return &ForbiddenAccess{AuthorisationError{
		Code:    "forbidden",
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf(format, args...),
	}}
}

// Token boundary error codes. MissingAuthorization is the only code callers
// may degrade on; every other code is a hard failure on endpoints that
// mandate a scope.
const (
	CodeMissingAuthorization = "missing_authorization"
	CodeInvalidToken         = "invalid_token"
	CodeExpiredToken         = "expired_token"
	CodeInsufficientScope    = "insufficient_scope"
)

// TokenError is raised by the token boundary. Its Code field is the
// machine-readable discriminator callers inspect.
type TokenError struct {
	AuthorisationError
}

// NewTokenError creates a TokenError with the given code and message.
// insufficient_scope is the one code raised after successful authentication,
// so it maps to 403 rather than 401 (RFC 6750 section 3.1).
func NewTokenError(code, message string) *TokenError {
	status := http.StatusUnauthorized
	if code == CodeInsufficientScope {
		status = http.StatusForbidden
	}
	return &TokenError{AuthorisationError{
		Code:    code,
		Status:  status,
		Message: message,
	}}
}

// IsMissingAuthorization reports whether err is a token boundary error with
// the missing_authorization code, i.e. no bearer token was presented at all.
// Endpoints with a public subset treat this as "fall back to anonymous view"
// rather than a failure.
func IsMissingAuthorization(err error) bool {
	var terr *TokenError
	return errors.As(err, &terr) && terr.Code == CodeMissingAuthorization
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusOf maps an error to its HTTP-analog status code. Unknown errors map
// to 500 without leaking their details.
func StatusOf(err error) int {
	var (
		nf   *NotFoundError
		fa   *ForbiddenAccess
		terr *TokenError
		ae   *AuthorisationError
	)
	switch {
	case errors.As(err, &nf):
		return nf.Status
	case errors.As(err, &fa):
		return fa.Status
	case errors.As(err, &terr):
		return terr.Status
	case errors.As(err, &ae):
		return ae.Status
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf maps an error to its machine-readable code for the JSON error body.
func CodeOf(err error) string {
	var (
		nf   *NotFoundError
		fa   *ForbiddenAccess
		terr *TokenError
		ae   *AuthorisationError
	)
	switch {
	case errors.As(err, &nf):
		return nf.Code
	case errors.As(err, &fa):
		return fa.Code
	case errors.As(err, &terr):
		return terr.Code
	case errors.As(err, &ae):
		return ae.Code
	default:
		return "server_error"
	}
}
