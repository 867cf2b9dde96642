package auth

import (
	"github.com/goliatone/go-errors"
)

// Stable reason codes. Rejection reasons are retained in logs and error
// metadata; user-facing responses collapse them into a generic 401.
const (
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeSignatureInvalid   = "TOKEN_SIGNATURE_INVALID"
	TextCodeRoleMismatch       = "TOKEN_ROLE_MISMATCH"
	TextCodePurposeMismatch    = "TOKEN_PURPOSE_MISMATCH"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	TextCodeNoCredentials      = "NO_CREDENTIALS"
	TextCodeRefreshInvalid     = "INVALID_OR_REVOKED_REFRESH_TOKEN"
	TextCodeAccessInvalid      = "INVALID_ACCESS_TOKEN"
	TextCodeDuplicateTokenID   = "DUPLICATE_TOKEN_ID"
	TextCodeVersionConflict    = "ACCOUNT_VERSION_CONFLICT"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeInsufficientRole   = "INSUFFICIENT_ROLE"
)

// Codec-level errors. These never reach callers of the authenticator; they
// are translated into the authenticator taxonomy below.

// ErrTokenExpired is returned when a credential's expiry is in the past.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a credential cannot be parsed.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignatureInvalid is returned when a credential's signature does
// not verify, including a token signed for the other purpose.
var ErrTokenSignatureInvalid = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeSignatureInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrRoleMismatch is returned when a verified access credential does not
// carry the role the caller required.
var ErrRoleMismatch = errors.New("token role mismatch", errors.CategoryAuthz).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(errors.CodeForbidden)

// ErrTokenPurposeMismatch is returned when a credential decodes under the
// wrong purpose, e.g. a refresh token presented where access is expected.
var ErrTokenPurposeMismatch = errors.New("token purpose mismatch", errors.CategoryAuth).
	WithTextCode(TextCodePurposeMismatch).
	WithCode(errors.CodeUnauthorized)

// Authenticator-level errors.

// ErrAccountNotFound is returned when a verified credential names an
// account that no longer exists.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrAccountDeactivated is returned when the account exists but has been
// deactivated by an admin. Credential validity does not override it.
var ErrAccountDeactivated = errors.New("account is deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeUnauthorized)

// ErrNoCredentials is returned when neither an access token nor a refresh
// cookie was presented.
var ErrNoCredentials = errors.New("no credentials provided", errors.CategoryAuth).
	WithTextCode(TextCodeNoCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrRefreshTokenInvalid covers every refresh-path failure after the
// cookie was present: bad signature, expiry, unknown or revoked record.
// Collapsing the causes keeps the rejection indistinguishable to clients.
var ErrRefreshTokenInvalid = errors.New("invalid or revoked refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrAccessTokenInvalid is returned on the access-only path when the
// bearer token failed verification and no refresh fallback existed.
var ErrAccessTokenInvalid = errors.New("invalid access token", errors.CategoryAuth).
	WithTextCode(TextCodeAccessInvalid).
	WithCode(errors.CodeUnauthorized)

// Store and persistence errors.

// ErrDuplicateTokenID signals broken opaque-id generation. It is an
// integrity error: logged at error severity and surfaced, never swallowed.
var ErrDuplicateTokenID = errors.New("duplicate refresh token id", errors.CategoryInternal).
	WithTextCode(TextCodeDuplicateTokenID).
	WithCode(errors.CodeInternal)

// ErrVersionConflict is returned when a version-conditioned account save
// lost the race against a concurrent writer.
var ErrVersionConflict = errors.New("account version conflict", errors.CategoryConflict).
	WithTextCode(TextCodeVersionConflict).
	WithCode(errors.CodeConflict)

// ErrMismatchedHashAndPassword is the login failure for a bad identifier
// or password; both collapse into one message on purpose.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrInsufficientRole is the requireRole failure.
var ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

const metadataClearRefreshCookie = "clear_refresh_cookie"

// sentinelWith returns a detached copy of the sentinel carrying extra
// metadata. errors.Wrap clones an *Error without chaining the original,
// so the copy sets the sentinel as its source; errors.Is keeps matching
// it and the shared sentinel is never mutated.
func sentinelWith(base *errors.Error, metadata map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}
	return clone
}

// withClearCookie tags a rejection so the transport layer knows the
// refresh cookie is no longer trustworthy and must be cleared.
func withClearCookie(base *errors.Error) *errors.Error {
	return sentinelWith(base, map[string]any{
		metadataClearRefreshCookie: true,
	})
}

// ShouldClearRefreshCookie reports whether the rejection instructs the
// caller to clear the refresh cookie.
func ShouldClearRefreshCookie(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	if richErr.Metadata == nil {
		return false
	}
	clear, ok := richErr.Metadata[metadataClearRefreshCookie].(bool)
	return ok && clear
}

// IsAuthRejection reports whether err is one of the authenticator's
// rejection outcomes, as opposed to an internal failure.
func IsAuthRejection(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth || richErr.Category == errors.CategoryAuthz
}
