package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/teleclinic/go-auth"
)

func TestSimpleConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, testConfig().Validate())
	})

	t.Run("signing keys are required and must be long enough", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessSigningKey = ""
		assert.Error(t, cfg.Validate())

		cfg = testConfig()
		cfg.RefreshSigningKey = "too-short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("purposes must not share a secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshSigningKey = cfg.AccessSigningKey

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must differ")
	})

	t.Run("issuer is required", func(t *testing.T) {
		cfg := testConfig()
		cfg.Issuer = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative durations are rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTokenTTL = -time.Minute
		assert.Error(t, cfg.Validate())
	})
}

func TestSimpleConfig_Defaults(t *testing.T) {
	cfg := auth.SimpleConfig{}

	assert.Equal(t, auth.DefaultAccessTokenTTL, cfg.GetAccessTokenTTL())
	assert.Equal(t, auth.DefaultRefreshTokenTTL, cfg.GetRefreshTokenTTL())
	assert.Equal(t, auth.DefaultRotationThreshold, cfg.GetRotationThreshold())
	assert.Equal(t, "refresh_token", cfg.GetRefreshCookieName())
	assert.Empty(t, cfg.GetCookieDomain())
}

func TestSimpleConfig_Overrides(t *testing.T) {
	cfg := auth.SimpleConfig{
		AccessTokenTTL:    5 * time.Minute,
		RefreshTokenTTL:   48 * time.Hour,
		RotationThreshold: 6 * time.Hour,
		RefreshCookieName: "rt",
		CookieDomain:      "example.com",
	}

	assert.Equal(t, 5*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 48*time.Hour, cfg.GetRefreshTokenTTL())
	assert.Equal(t, 6*time.Hour, cfg.GetRotationThreshold())
	assert.Equal(t, "rt", cfg.GetRefreshCookieName())
	assert.Equal(t, "example.com", cfg.GetCookieDomain())
}
