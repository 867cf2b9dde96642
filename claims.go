package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose distinguishes the two credential kinds. Each purpose is
// signed with its own secret and carries its own claim shape.
type TokenPurpose string

const (
	TokenPurposeAccess  TokenPurpose = "access"
	TokenPurposeRefresh TokenPurpose = "refresh"
)

// AccessClaims is the claim shape of the short-lived access credential:
// subject identity plus role, nothing else.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id the credential was issued for
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role claim
func (c *AccessClaims) Role() string {
	return c.UserRole
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the claim shape of the refresh credential: subject
// identity plus the opaque id correlating it to its revocation record.
// The opaque id is not secret-bearing; it only names the record.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid,omitempty"`
	TokenID string `json:"tid"`
}

// Subject returns the subject claim
func (c *RefreshClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account id the credential was issued for
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *RefreshClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// VerifiedCredential is the tagged result of TokenCodec.Verify: exactly
// one of Access or Refresh is set, matching Purpose. Callers switch on
// the variant instead of probing claim shapes.
type VerifiedCredential struct {
	Purpose TokenPurpose
	Access  *AccessClaims
	Refresh *RefreshClaims
}
