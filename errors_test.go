package auth_test

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/teleclinic/go-auth"
)

func TestRejectionTaxonomy(t *testing.T) {
	cases := []struct {
		err      *errors.Error
		textCode string
	}{
		{auth.ErrTokenExpired, "TOKEN_EXPIRED"},
		{auth.ErrTokenMalformed, "TOKEN_MALFORMED"},
		{auth.ErrTokenSignatureInvalid, "TOKEN_SIGNATURE_INVALID"},
		{auth.ErrAccountNotFound, "ACCOUNT_NOT_FOUND"},
		{auth.ErrAccountDeactivated, "ACCOUNT_DEACTIVATED"},
		{auth.ErrNoCredentials, "NO_CREDENTIALS"},
		{auth.ErrRefreshTokenInvalid, "INVALID_OR_REVOKED_REFRESH_TOKEN"},
		{auth.ErrAccessTokenInvalid, "INVALID_ACCESS_TOKEN"},
	}

	for _, tc := range cases {
		t.Run(tc.textCode, func(t *testing.T) {
			assert.Equal(t, tc.textCode, tc.err.TextCode)
			assert.True(t, auth.IsAuthRejection(tc.err))
		})
	}
}

func TestIsAuthRejection(t *testing.T) {
	t.Run("authz failures are rejections", func(t *testing.T) {
		assert.True(t, auth.IsAuthRejection(auth.ErrInsufficientRole))
		assert.True(t, auth.IsAuthRejection(auth.ErrRoleMismatch))
	})

	t.Run("integrity and conflict failures are not", func(t *testing.T) {
		assert.False(t, auth.IsAuthRejection(auth.ErrDuplicateTokenID))
		assert.False(t, auth.IsAuthRejection(auth.ErrVersionConflict))
	})

	t.Run("plain errors are not", func(t *testing.T) {
		assert.False(t, auth.IsAuthRejection(fmt.Errorf("boom")))
		assert.False(t, auth.IsAuthRejection(nil))
	})
}

func TestShouldClearRefreshCookie(t *testing.T) {
	t.Run("bare sentinels carry no clear instruction", func(t *testing.T) {
		assert.False(t, auth.ShouldClearRefreshCookie(auth.ErrRefreshTokenInvalid))
		assert.False(t, auth.ShouldClearRefreshCookie(auth.ErrAccountDeactivated))
		assert.False(t, auth.ShouldClearRefreshCookie(nil))
	})

	t.Run("tagged copies keep sentinel identity", func(t *testing.T) {
		// The authenticator attaches the clear instruction on a detached
		// copy that chains back to the sentinel; errors.Wrap clones an
		// *Error without chaining it, so the copy must carry the sentinel
		// as its source for errors.Is to match.
		tagged := auth.ErrRefreshTokenInvalid.Clone()
		tagged.Source = auth.ErrRefreshTokenInvalid
		tagged.WithMetadata(map[string]any{"clear_refresh_cookie": true})

		assert.ErrorIs(t, tagged, auth.ErrRefreshTokenInvalid)
		assert.True(t, auth.ShouldClearRefreshCookie(tagged))

		// The shared sentinel itself stays untagged.
		assert.False(t, auth.ShouldClearRefreshCookie(auth.ErrRefreshTokenInvalid))
	})

	t.Run("plain errors.Wrap drops sentinel identity", func(t *testing.T) {
		// Documents why the source chain above is needed: Wrap on an
		// *Error clones it and leaves Source nil.
		wrapped := errors.Wrap(auth.ErrRefreshTokenInvalid, errors.CategoryAuth, "invalid or revoked refresh token")
		assert.NotErrorIs(t, wrapped, auth.ErrRefreshTokenInvalid)
	})
}
