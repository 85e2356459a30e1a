package problems

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Every code except EInternal is a caller-side failure reported
// on the request that caused it.
const (
	EInternal                   = "internal"
	EInvalidRequest             = "invalid_request"
	EInvalidTenant              = "invalid_tenant"
	ENoTenantContext            = "no_tenant_context"
	ENoSuchClient               = "invalid_client"
	EMalformedIdentity          = "malformed_principal_identity"
	EUnknownUserType            = "unknown_user_type"
	EMissingScope               = "invalid_scope"
	EInsufficientAuthentication = "insufficient_authentication"
	EInvalidToken               = "invalid_token"
	EInvalidGrant               = "invalid_grant"
	EUnsupportedGrantType       = "unsupported_grant_type"
	EAccessDenied               = "access_denied"
)

// Error is the coded error used across the service.
//
// Code is for automated handlers (status mapping, OAuth2 error field),
// Msg is safe to return to the caller, Op names the failing operation and
// Err carries the underlying cause for logs.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Msg != "":
		return e.Msg
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so sentinel *Error values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// New builds an Error with a formatted message.
func New(code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and operation to err.
func Wrap(err error, code, op string) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, EInternal when
// there is none and "" for a nil error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	for cur := err; errors.As(cur, &e); cur = e.Err {
		if e.Code != "" {
			return e.Code
		}
		if e.Err == nil {
			break
		}
	}
	return EInternal
}

// MessageOf returns the first caller-safe message in err's chain, falling
// back to the code. Causes of internal errors are never exposed.
func MessageOf(err error) string {
	code := CodeOf(err)
	var e *Error
	for cur := err; errors.As(cur, &e); cur = e.Err {
		if e.Msg != "" {
			return e.Msg
		}
		if e.Err == nil {
			break
		}
	}
	if code == EInternal {
		return "internal error"
	}
	return code
}

// Status maps an error code to an HTTP status.
func Status(code string) int {
	switch code {
	case EInvalidRequest, EInvalidTenant, EMalformedIdentity, EUnknownUserType,
		EMissingScope, EInvalidGrant, EUnsupportedGrantType, ENoTenantContext:
		return http.StatusBadRequest
	case ENoSuchClient, EInvalidToken:
		return http.StatusUnauthorized
	case EInsufficientAuthentication, EAccessDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
