package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the account's role
type UserRole = string

const (
	// RolePatient is the default role for registered accounts
	RolePatient UserRole = "patient"
	// RoleDoctor marks accounts that may access doctor endpoints
	RoleDoctor UserRole = "doctor"
	// RoleAdmin marks platform administrators
	RoleAdmin UserRole = "admin"
)

// Account is the aggregate that owns the refresh-token ledger. All token
// record mutations go through AppendRefreshToken/RevokeRefreshToken and
// are persisted with Accounts.SaveRefreshTokens; profile updates must not
// touch the RefreshTokens column (see Accounts.Update).
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID            `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string               `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string               `bun:"first_name" json:"first_name,omitempty"`
	LastName      string               `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash  string               `bun:"password_hash" json:"-"`
	IsAdmin       bool                 `bun:"is_admin" json:"is_admin,omitempty"`
	IsDoctor      bool                 `bun:"is_doctor" json:"is_doctor,omitempty"`
	Active        bool                 `bun:"active,notnull" json:"active"`
	RefreshTokens []RefreshTokenRecord `bun:"refresh_tokens,type:jsonb" json:"refresh_tokens,omitempty"`
	// Version guards the refresh-token ledger against lost updates.
	// Bumped by SaveRefreshTokens only.
	Version   int64      `bun:"version,notnull,default:0" json:"version"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// RefreshTokenRecord is one entry in the account's revocation ledger.
// Once Revoked is true it never reverts; records are only removed when
// the account itself is deleted.
type RefreshTokenRecord struct {
	TokenID  string    `json:"token_id"`
	IssuedAt time.Time `json:"issued_at"`
	Revoked  bool      `json:"revoked"`
}

// Role derives the account's effective role from its flags.
func (a *Account) Role() UserRole {
	switch {
	case a.IsAdmin:
		return RoleAdmin
	case a.IsDoctor:
		return RoleDoctor
	default:
		return RolePatient
	}
}

// IsActive reports whether the account may authenticate at all.
func (a *Account) IsActive() bool {
	return a != nil && a.Active && a.DeletedAt == nil
}
