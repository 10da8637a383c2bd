package tenantauth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes surfaced to API clients alongside the HTTP status.
const (
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeInvalidSignature     = "INVALID_SIGNATURE"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeInvalidRole          = "INVALID_ROLE"
	TextCodeTokenRevoked         = "TOKEN_REVOKED"
	TextCodePrincipalNotFound    = "PRINCIPAL_NOT_FOUND"
	TextCodeTenantInactive       = "TENANT_INACTIVE"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeImpersonationActive  = "IMPERSONATION_CONFLICT"
	TextCodeInvalidTarget        = "INVALID_IMPERSONATION_TARGET"
	TextCodeReasonRequired       = "IMPERSONATION_REASON_REQUIRED"
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeTooManyAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeLegacyFallbackDenied = "LEGACY_FALLBACK_DISABLED"
)

// ErrTokenMalformed is returned for structurally invalid tokens.
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrInvalidSignature is returned when the token signature does not verify.
var ErrInvalidSignature = goerrors.New("session token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature)

// ErrTokenExpired is returned when a token is past its embedded expiry.
var ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrInvalidRole is returned when a token carries a role outside the
// closed set, regardless of signature validity.
var ErrInvalidRole = goerrors.New("session token carries an unknown role", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidRole)

// ErrTokenRevoked is returned when a revocation marker exists for the
// token or its user.
var ErrTokenRevoked = goerrors.New("session token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked)

// ErrPrincipalNotFound is returned when the token subject does not
// resolve to an active user in the system of record.
var ErrPrincipalNotFound = goerrors.New("principal not found or inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodePrincipalNotFound)

// ErrTenantInactive is returned when the user's current tenant is
// missing or deactivated.
var ErrTenantInactive = goerrors.New("tenant is missing or inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodeTenantInactive)

// ErrForbidden is returned when a role check fails.
var ErrForbidden = goerrors.New("insufficient role for this operation", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden)

// ErrImpersonationConflict is returned when an impersonation transition
// is attempted from the wrong state (nested start, stop without start).
var ErrImpersonationConflict = goerrors.New("already impersonating another user", goerrors.CategoryConflict).
	WithTextCode(TextCodeImpersonationActive)

// ErrInvalidImpersonationTarget is returned when the impersonation target
// is the actor, inactive, missing, or in an inactive tenant.
var ErrInvalidImpersonationTarget = goerrors.New("impersonation target is invalid", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTarget)

// ErrImpersonationReasonRequired is returned when the operator supplied
// no reason, or one shorter than MinImpersonationReasonLength.
var ErrImpersonationReasonRequired = goerrors.New("impersonation requires a reason", goerrors.CategoryValidation).
	WithTextCode(TextCodeReasonRequired)

// ErrMismatchedHashAndPassword is returned for bad credentials during login.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before key derivation.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTooManyLoginAttempts is returned once the failed-attempt counter
// exceeds MaxLoginAttempts inside the cool-down window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrLegacyFallbackDisabled is returned by the legacy header resolver
// unless both migration flags are set.
var ErrLegacyFallbackDisabled = goerrors.New("legacy header fallback is disabled", goerrors.CategoryAuth).
	WithTextCode(TextCodeLegacyFallbackDenied)

// SessionInvalidMessage is the uniform user-facing text for every token
// failure mode. Invalid, expired, and revoked tokens present identically
// so callers cannot distinguish which check rejected them.
const SessionInvalidMessage = "session invalid, please sign in again"

// UserFacingMessage maps an auth error to the text shown to the end user.
// Token failures collapse into SessionInvalidMessage; impersonation
// precondition failures keep their operator-actionable message.
func UserFacingMessage(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return SessionInvalidMessage
	}

	switch richErr.TextCode {
	case TextCodeImpersonationActive, TextCodeInvalidTarget, TextCodeReasonRequired, TextCodeForbidden:
		return richErr.Message
	case TextCodeTooManyAttempts:
		return richErr.Message
	default:
		return SessionInvalidMessage
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
