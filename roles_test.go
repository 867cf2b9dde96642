package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	auth "github.com/teleclinic/go-auth"
)

func TestRoleIsValid(t *testing.T) {
	assert.True(t, auth.RoleIsValid(auth.RolePatient))
	assert.True(t, auth.RoleIsValid(auth.RoleDoctor))
	assert.True(t, auth.RoleIsValid(auth.RoleAdmin))
	assert.False(t, auth.RoleIsValid("superuser"))
	assert.False(t, auth.RoleIsValid(""))
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, auth.RoleIsAtLeast(auth.RoleAdmin, auth.RolePatient))
	assert.True(t, auth.RoleIsAtLeast(auth.RoleAdmin, auth.RoleDoctor))
	assert.True(t, auth.RoleIsAtLeast(auth.RoleDoctor, auth.RolePatient))
	assert.True(t, auth.RoleIsAtLeast(auth.RolePatient, auth.RolePatient))

	assert.False(t, auth.RoleIsAtLeast(auth.RolePatient, auth.RoleDoctor))
	assert.False(t, auth.RoleIsAtLeast(auth.RoleDoctor, auth.RoleAdmin))
	assert.False(t, auth.RoleIsAtLeast("unknown", auth.RolePatient))
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("doctor")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleDoctor, role)

	_, ok = auth.ParseRole("root")
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	t.Run("nil account has no credentials", func(t *testing.T) {
		err := auth.RequireRole(nil, auth.RolePatient)
		assert.ErrorIs(t, err, auth.ErrNoCredentials)
	})

	t.Run("admin satisfies every check", func(t *testing.T) {
		account := &auth.Account{ID: uuid.New(), IsAdmin: true, Active: true}
		assert.NoError(t, auth.RequireRole(account, auth.RolePatient))
		assert.NoError(t, auth.RequireRole(account, auth.RoleDoctor))
		assert.NoError(t, auth.RequireRole(account, auth.RoleAdmin))
	})

	t.Run("patient cannot pass the doctor gate", func(t *testing.T) {
		account := &auth.Account{ID: uuid.New(), Active: true}
		err := auth.RequireDoctor(account)
		assert.ErrorIs(t, err, auth.ErrInsufficientRole)
	})

	t.Run("doctor passes the doctor gate", func(t *testing.T) {
		account := &auth.Account{ID: uuid.New(), IsDoctor: true, Active: true}
		assert.NoError(t, auth.RequireDoctor(account))
	})
}
