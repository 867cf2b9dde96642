package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// SimpleConfig is the concrete Config used by the service wiring. Signing
// secrets are loaded at process start and injected here; the codec never
// reads ambient state.
type SimpleConfig struct {
	AccessSigningKey  string
	RefreshSigningKey string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RotationThreshold time.Duration
	Issuer            string
	Audience          []string
	RefreshCookieName string
	CookieDomain      string
}

var _ Config = (*SimpleConfig)(nil)

// Validate enforces the invariants the codec relies on, most importantly
// that the two purposes never share a secret.
func (c SimpleConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessSigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.RefreshSigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.Issuer, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth configuration")
	}

	if c.AccessSigningKey == c.RefreshSigningKey {
		return errors.New("access and refresh signing keys must differ", errors.CategoryValidation).
			WithTextCode("SHARED_SIGNING_KEY")
	}

	if c.AccessTokenTTL < 0 || c.RefreshTokenTTL < 0 || c.RotationThreshold < 0 {
		return errors.New("token durations must be non-negative", errors.CategoryValidation).
			WithTextCode("NEGATIVE_DURATION")
	}

	return nil
}

func (c SimpleConfig) GetAccessSigningKey() string {
	return c.AccessSigningKey
}

func (c SimpleConfig) GetRefreshSigningKey() string {
	return c.RefreshSigningKey
}

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c SimpleConfig) GetRotationThreshold() time.Duration {
	if c.RotationThreshold <= 0 {
		return DefaultRotationThreshold
	}
	return c.RotationThreshold
}

func (c SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c SimpleConfig) GetAudience() []string {
	return c.Audience
}

// GetRefreshCookieName defaults to "refresh_token".
func (c SimpleConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refresh_token"
	}
	return c.RefreshCookieName
}

func (c SimpleConfig) GetCookieDomain() string {
	return c.CookieDomain
}
