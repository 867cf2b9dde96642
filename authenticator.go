package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultRotationRetries bounds how often a rotation is re-attempted
// after losing the account version race to a concurrent request.
const DefaultRotationRetries = 3

// SessionAuthenticator drives the credential state machine: access-first
// verification, refresh fallback, revocation check, and rotation.
type SessionAuthenticator struct {
	accounts        Accounts
	codec           TokenCodec
	rotation        RotationPolicy
	logger          Logger
	activitySink    ActivitySink
	now             func() time.Time
	rotationRetries int
}

// NewSessionAuthenticator returns a new SessionAuthenticator
func NewSessionAuthenticator(accounts Accounts, cfg Config) *SessionAuthenticator {
	logger := defLogger{}

	return &SessionAuthenticator{
		accounts:        accounts,
		codec:           NewTokenCodec(cfg, logger),
		rotation:        NewRotationPolicy(cfg),
		logger:          logger,
		activitySink:    noopActivitySink{},
		now:             time.Now,
		rotationRetries: DefaultRotationRetries,
	}
}

func (s *SessionAuthenticator) WithLogger(logger Logger) *SessionAuthenticator {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *SessionAuthenticator) WithActivitySink(sink ActivitySink) *SessionAuthenticator {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithRotationPolicy overrides the default threshold policy.
func (s *SessionAuthenticator) WithRotationPolicy(policy RotationPolicy) *SessionAuthenticator {
	if policy != nil {
		s.rotation = policy
	}
	return s
}

// WithTokenCodec swaps the codec, mostly for tests injecting clocks.
func (s *SessionAuthenticator) WithTokenCodec(codec TokenCodec) *SessionAuthenticator {
	if codec != nil {
		s.codec = codec
	}
	return s
}

// WithClock overrides the authenticator clock and, when the codec is the
// default implementation, the codec clock as well.
func (s *SessionAuthenticator) WithClock(now func() time.Time) *SessionAuthenticator {
	if now == nil {
		return s
	}
	s.now = now
	if impl, ok := s.codec.(*TokenCodecImpl); ok {
		impl.WithClock(now)
	}
	return s
}

// Codec returns the TokenCodec instance used by this authenticator.
func (s *SessionAuthenticator) Codec() TokenCodec {
	return s.codec
}

// Login verifies the password and mints the initial credential pair,
// appending the refresh record to the account's ledger.
func (s *SessionAuthenticator) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			// Same failure, and roughly the same latency, as a bad
			// password so login cannot probe which emails exist.
			_ = ComparePasswordAndHash(password, RandomPasswordHash())
			s.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", "", map[string]any{
				"identifier": identifier,
			})
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load account during login")
	}

	if !account.IsActive() {
		s.emitEvent(ctx, ActivityEventLoginFailure, actorFromAccount(account), account.ID.String(), "", map[string]any{
			"identifier": identifier,
			"reason":     TextCodeAccountDeactivated,
		})
		return nil, ErrAccountDeactivated
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitEvent(ctx, ActivityEventLoginFailure, actorFromAccount(account), account.ID.String(), "", map[string]any{
			"identifier": identifier,
		})
		return nil, ErrMismatchedHashAndPassword
	}

	tokenID := NewRefreshTokenID()
	issuedAt := s.now()

	account, err = s.persistLedger(ctx, account, func(a *Account) error {
		return a.AppendRefreshToken(tokenID, issuedAt)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.mintPair(account, tokenID)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, ActivityEventLoginSuccess, actorFromAccount(account), account.ID.String(), tokenID, map[string]any{
		"identifier": identifier,
	})

	return result, nil
}

// Authenticate is the required-auth entry point. It verifies the access
// credential when present, falls back to the refresh credential, and
// returns a distinct, stable rejection for every failure class. Callers
// must collapse rejections into a generic unauthorized response; logs
// retain the reason.
func (s *SessionAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if creds.AccessToken != "" {
		claims, err := s.codec.VerifyAccess(creds.AccessToken)
		if err == nil {
			return s.authenticateWithAccess(ctx, creds.AccessToken, claims)
		}
		// Any access failure, including expiry, falls through to the
		// refresh path.
		s.logger.Debug("access credential rejected, trying refresh fallback", "error", err)
	}

	return s.authenticateWithRefresh(ctx, creds)
}

// AuthenticateOptional is the mixed public/authenticated variant: every
// rejection is swallowed into "no principal" and processing continues
// unauthenticated. It never returns an error.
func (s *SessionAuthenticator) AuthenticateOptional(ctx context.Context, creds Credentials) *AuthResult {
	result, err := s.Authenticate(ctx, creds)
	if err != nil {
		if IsAuthRejection(err) {
			s.logger.Debug("optional auth proceeding unauthenticated", "error", err)
		} else {
			s.logger.Error("optional auth swallowed internal failure", "error", err)
		}
		return nil
	}
	return result
}

// Logout revokes the refresh credential's record server-side. A token
// that does not verify has nothing to revoke and is not an error; the
// transport clears the cookie either way.
func (s *SessionAuthenticator) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}

	claims, err := s.codec.VerifyRefresh(rawRefresh)
	if err != nil {
		s.logger.Debug("logout with unverifiable refresh token", "error", err)
		return nil
	}

	accountID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to load account during logout")
	}

	account, err = s.persistLedger(ctx, account, func(a *Account) error {
		a.RevokeRefreshToken(claims.TokenID)
		return nil
	})
	if err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventTokenRevoked, actorFromAccount(account), account.ID.String(), claims.TokenID, nil)

	return nil
}

// RevokeAllSessions revokes every live refresh record for the account.
// This is the response to a leaked credential: one account's sessions
// end without touching anyone else's.
func (s *SessionAuthenticator) RevokeAllSessions(ctx context.Context, accountID uuid.UUID, actor ActorRef) (int, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, ErrAccountNotFound
		}
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to load account")
	}

	revoked := 0
	account, err = s.persistLedger(ctx, account, func(a *Account) error {
		revoked = a.RevokeAllRefreshTokens()
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.emitEvent(ctx, ActivityEventSessionsCleared, actor, account.ID.String(), "", map[string]any{
		"revoked": revoked,
	})

	return revoked, nil
}

func (s *SessionAuthenticator) authenticateWithAccess(ctx context.Context, presented string, claims *AccessClaims) (*AuthResult, error) {
	account, err := s.loadBySubject(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}

	if !account.IsActive() {
		return nil, ErrAccountDeactivated
	}

	return &AuthResult{
		Account:      account,
		Claims:       claims,
		AccessToken:  presented,
		AccessExpiry: claims.Expires(),
	}, nil
}

func (s *SessionAuthenticator) authenticateWithRefresh(ctx context.Context, creds Credentials) (*AuthResult, error) {
	if creds.RefreshToken == "" {
		if creds.AccessToken != "" {
			return nil, ErrAccessTokenInvalid
		}
		return nil, ErrNoCredentials
	}

	claims, err := s.codec.VerifyRefresh(creds.RefreshToken)
	if err != nil {
		// Expired, tampered, and wrong-purpose tokens are deliberately
		// indistinguishable to the caller.
		s.logger.Debug("refresh credential failed verification", "error", err)
		return nil, withClearCookie(ErrRefreshTokenInvalid)
	}

	account, err := s.loadBySubject(ctx, claims.UserID())
	if err != nil {
		// The credential verified cryptographically but the account is
		// gone: the cookie is no longer trustworthy.
		if errors.Is(err, ErrAccountNotFound) {
			return nil, withClearCookie(ErrAccountNotFound)
		}
		return nil, err
	}

	if !account.IsActive() {
		// The ledger record is intentionally left untouched so that
		// reactivating the account lets the client resume without a
		// fresh login.
		return nil, withClearCookie(ErrAccountDeactivated)
	}

	record, found := account.FindRefreshToken(claims.TokenID)
	if !found || record.Revoked {
		s.emitEvent(ctx, ActivityEventRefreshRejected, actorFromAccount(account), account.ID.String(), claims.TokenID, map[string]any{
			"found":   found,
			"revoked": record.Revoked,
		})
		return nil, withClearCookie(ErrRefreshTokenInvalid)
	}

	// Every successful refresh-path authentication yields a fresh access
	// credential so the client can resume access-only auth.
	accessToken, accessExpiry, err := s.codec.IssueAccess(account.ID.String(), account.Role())
	if err != nil {
		return nil, err
	}

	result := &AuthResult{
		Account:      account,
		AccessToken:  accessToken,
		AccessExpiry: accessExpiry,
	}

	if s.rotation.ShouldRotate(claims.Expires(), s.now()) {
		refreshToken, refreshExpiry, rotatedAccount, err := s.rotate(ctx, account, claims.TokenID)
		if err != nil {
			return nil, err
		}
		result.Account = rotatedAccount
		result.RefreshToken = refreshToken
		result.RefreshExpiry = refreshExpiry
	}

	s.emitEvent(ctx, ActivityEventRefreshSuccess, actorFromAccount(result.Account), result.Account.ID.String(), claims.TokenID, map[string]any{
		"rotated": result.Rotated(),
	})

	return result, nil
}

// rotate retires the presented record and appends a replacement within a
// single version-conditioned account save. Losing the version race means
// another request rotated concurrently; the retry reloads and re-checks
// the record so exactly one replacement survives.
func (s *SessionAuthenticator) rotate(ctx context.Context, account *Account, oldTokenID string) (string, time.Time, *Account, error) {
	newTokenID := NewRefreshTokenID()
	issuedAt := s.now()

	account, err := s.persistLedger(ctx, account, func(a *Account) error {
		record, found := a.FindRefreshToken(oldTokenID)
		if !found || record.Revoked {
			return withClearCookie(ErrRefreshTokenInvalid)
		}
		a.RevokeRefreshToken(oldTokenID)
		return a.AppendRefreshToken(newTokenID, issuedAt)
	})
	if err != nil {
		return "", time.Time{}, nil, err
	}

	refreshToken, refreshExpiry, err := s.codec.IssueRefresh(account.ID.String(), newTokenID)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	s.emitEvent(ctx, ActivityEventTokenRotated, actorFromAccount(account), account.ID.String(), newTokenID, map[string]any{
		"retired_token_id": oldTokenID,
	})

	return refreshToken, refreshExpiry, account, nil
}

// persistLedger applies mutate and saves the ledger, retrying a bounded
// number of times when a concurrent writer won the version race. mutate
// runs again against the reloaded account on every retry.
func (s *SessionAuthenticator) persistLedger(ctx context.Context, account *Account, mutate func(*Account) error) (*Account, error) {
	for attempt := 0; ; attempt++ {
		if err := mutate(account); err != nil {
			if errors.Is(err, ErrDuplicateTokenID) {
				// Integrity violation: opaque-id generation is broken.
				s.logger.Error("duplicate refresh token id", "account_id", account.ID.String(), "error", err)
			}
			return nil, err
		}

		err := s.accounts.SaveRefreshTokens(ctx, account)
		if err == nil {
			return account, nil
		}

		if !errors.Is(err, ErrVersionConflict) || attempt >= s.rotationRetries {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token ledger")
		}

		s.logger.Warn("refresh ledger version conflict, retrying",
			"account_id", account.ID.String(),
			"attempt", attempt+1,
		)

		fresh, loadErr := s.accounts.GetByID(ctx, account.ID)
		if loadErr != nil {
			return nil, errors.Wrap(loadErr, errors.CategoryInternal, "failed to reload account after version conflict")
		}
		account = fresh
	}
}

func (s *SessionAuthenticator) mintPair(account *Account, tokenID string) (*AuthResult, error) {
	accessToken, accessExpiry, err := s.codec.IssueAccess(account.ID.String(), account.Role())
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiry, err := s.codec.IssueRefresh(account.ID.String(), tokenID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Account:       account,
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refreshToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

func (s *SessionAuthenticator) loadBySubject(ctx context.Context, subject string) (*Account, error) {
	accountID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrAccountNotFound
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load account")
	}

	return account, nil
}

func (s *SessionAuthenticator) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID, tokenID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		TokenID:   tokenID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func actorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   account.ID.String(),
		Type: "account",
	}
}
