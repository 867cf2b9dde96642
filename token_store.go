package auth

import (
	"time"
)

// The refresh-token ledger lives on the Account aggregate. These are the
// only operations allowed to mutate it.

// AppendRefreshToken adds a new non-revoked record for tokenID. A
// duplicate id means opaque-id generation is broken; that is a fatal
// integrity error, not something to paper over.
func (a *Account) AppendRefreshToken(tokenID string, issuedAt time.Time) error {
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].TokenID == tokenID {
			return sentinelWith(ErrDuplicateTokenID, map[string]any{
				"account_id": a.ID.String(),
				"token_id":   tokenID,
			})
		}
	}

	a.RefreshTokens = append(a.RefreshTokens, RefreshTokenRecord{
		TokenID:  tokenID,
		IssuedAt: issuedAt,
	})

	return nil
}

// RevokeRefreshToken marks the record revoked. Idempotent: revoking an
// already-revoked or unknown id is a no-op success so benign replay races
// never become user-visible failures. Returns whether state changed.
func (a *Account) RevokeRefreshToken(tokenID string) bool {
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].TokenID != tokenID {
			continue
		}
		if a.RefreshTokens[i].Revoked {
			return false
		}
		a.RefreshTokens[i].Revoked = true
		return true
	}
	return false
}

// RevokeAllRefreshTokens revokes every live record, ending all of the
// account's sessions. Returns how many records changed state.
func (a *Account) RevokeAllRefreshTokens() int {
	revoked := 0
	for i := range a.RefreshTokens {
		if !a.RefreshTokens[i].Revoked {
			a.RefreshTokens[i].Revoked = true
			revoked++
		}
	}
	return revoked
}

// FindRefreshToken looks up the record for tokenID.
func (a *Account) FindRefreshToken(tokenID string) (RefreshTokenRecord, bool) {
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].TokenID == tokenID {
			return a.RefreshTokens[i], true
		}
	}
	return RefreshTokenRecord{}, false
}

// LiveRefreshTokens returns the non-revoked records, oldest first.
func (a *Account) LiveRefreshTokens() []RefreshTokenRecord {
	var live []RefreshTokenRecord
	for i := range a.RefreshTokens {
		if !a.RefreshTokens[i].Revoked {
			live = append(live, a.RefreshTokens[i])
		}
	}
	return live
}
