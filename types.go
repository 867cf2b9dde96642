package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Accounts is the persistence boundary the authenticator depends on.
// Implementations must map missing records to a not-found error and
// SaveRefreshTokens must fail with ErrVersionConflict when a concurrent
// writer won the version race.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	Update(ctx context.Context, account *Account) (*Account, error)
	SaveRefreshTokens(ctx context.Context, account *Account) error
	Deactivate(ctx context.Context, id uuid.UUID) (*Account, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*Account, error)
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRotationThreshold() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetRefreshCookieName() string
	GetCookieDomain() string
}

// TokenCodec produces and verifies signed, expiring credentials. Issue
// methods are side-effect free; persistence of the matching refresh-token
// record is the caller's job.
type TokenCodec interface {
	IssueAccess(subject, role string) (string, time.Time, error)
	IssueRefresh(subject, tokenID string) (string, time.Time, error)
	VerifyAccess(raw string, expectedRoles ...string) (*AccessClaims, error)
	VerifyRefresh(raw string) (*RefreshClaims, error)
	Verify(raw string, purpose TokenPurpose) (*VerifiedCredential, error)
}

// RotationPolicy decides whether a verified refresh credential should be
// replaced before it is allowed to coast to expiry.
type RotationPolicy interface {
	ShouldRotate(expiresAt, now time.Time) bool
}

// Credentials carries the raw tokens extracted from a request: the bearer
// access token and the refresh token from the persistent cookie channel.
// Either may be empty.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	Account *Account
	Claims  *AccessClaims
	// AccessToken authenticates follow-up requests. On the refresh path it
	// is freshly minted and must be handed back to the caller.
	AccessToken   string
	AccessExpiry  time.Time
	// RefreshToken is non-empty only when the refresh credential was
	// rotated; the caller must replace its cookie with it.
	RefreshToken  string
	RefreshExpiry time.Time
}

// Renewed reports whether the access token differs from the one the
// caller presented, i.e. the refresh path ran.
func (r *AuthResult) Renewed(presented string) bool {
	return r != nil && r.AccessToken != "" && r.AccessToken != presented
}

// Rotated reports whether a replacement refresh credential was minted.
func (r *AuthResult) Rotated() bool {
	return r != nil && r.RefreshToken != ""
}

// NewDefaultLogger builds the default structured logger used when callers
// do not inject their own.
func NewDefaultLogger(name string) Logger {
	return glog.NewLogger(glog.WithName(name))
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
