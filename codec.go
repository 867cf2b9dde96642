package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL bounds how long a stolen bearer token is useful.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the session horizon before a hard re-login.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenCodecImpl implements the TokenCodec interface
type TokenCodecImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// NewTokenCodec creates a new TokenCodec instance. Secrets come from the
// explicitly constructed Config, never from ambient state, so tests can
// inject distinct secrets per case.
func NewTokenCodec(cfg Config, logger Logger) TokenCodec {
	if logger == nil {
		logger = defLogger{}
	}

	accessTTL := cfg.GetAccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	var aud jwt.ClaimStrings
	if len(cfg.GetAudience()) > 0 {
		aud = make(jwt.ClaimStrings, len(cfg.GetAudience()))
		copy(aud, cfg.GetAudience())
	}

	return &TokenCodecImpl{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		refreshKey: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     cfg.GetIssuer(),
		audience:   aud,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock overrides the codec clock, used by tests to pin expiry math.
func (c *TokenCodecImpl) WithClock(now func() time.Time) *TokenCodecImpl {
	if now != nil {
		c.now = now
	}
	return c
}

// IssueAccess signs a short-lived access credential carrying subject and
// role. Stateless: nothing is persisted.
func (c *TokenCodecImpl) IssueAccess(subject, role string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.accessTTL)

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			Audience:  c.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      subject,
		UserRole: role,
	}

	signed, err := c.sign(claims, c.accessKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// IssueRefresh signs a refresh credential correlated to a revocation
// record through tokenID. The matching record must be appended to the
// account by the caller; the codec stays side-effect free.
func (c *TokenCodecImpl) IssueRefresh(subject, tokenID string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.refreshTTL)

	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			Audience:  c.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:     subject,
		TokenID: tokenID,
	}

	signed, err := c.sign(claims, c.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// VerifyAccess parses and validates an access credential. When expected
// roles are given the role claim must match one of them.
func (c *TokenCodecImpl) VerifyAccess(raw string, expectedRoles ...string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(raw, claims, c.accessKey); err != nil {
		return nil, err
	}

	if len(expectedRoles) > 0 {
		matched := false
		for _, role := range expectedRoles {
			if claims.UserRole == role {
				matched = true
				break
			}
		}
		if !matched {
			return nil, ErrRoleMismatch
		}
	}

	return claims, nil
}

// VerifyRefresh parses and validates a refresh credential. A structurally
// valid token without an opaque id is rejected; it cannot be correlated
// to a revocation record.
func (c *TokenCodecImpl) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(raw, claims, c.refreshKey); err != nil {
		return nil, err
	}

	if claims.TokenID == "" {
		return nil, ErrTokenPurposeMismatch
	}

	return claims, nil
}

// Verify validates raw under the given purpose and returns the tagged
// claim variant.
func (c *TokenCodecImpl) Verify(raw string, purpose TokenPurpose) (*VerifiedCredential, error) {
	switch purpose {
	case TokenPurposeAccess:
		claims, err := c.VerifyAccess(raw)
		if err != nil {
			return nil, err
		}
		return &VerifiedCredential{Purpose: TokenPurposeAccess, Access: claims}, nil
	case TokenPurposeRefresh:
		claims, err := c.VerifyRefresh(raw)
		if err != nil {
			return nil, err
		}
		return &VerifiedCredential{Purpose: TokenPurposeRefresh, Refresh: claims}, nil
	default:
		return nil, errors.New("unknown token purpose", errors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}
}

func (c *TokenCodecImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

func (c *TokenCodecImpl) parse(raw string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(c.now))
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		// No grace window for clock skew: expired means expired.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return ErrTokenSignatureInvalid
		}
		return sentinelWith(ErrTokenMalformed, map[string]any{
			"cause": err.Error(),
		})
	}

	if !token.Valid {
		c.logger.Error("TokenCodec could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}

// NewRefreshTokenID generates the opaque id correlating a refresh
// credential to its revocation record.
func NewRefreshTokenID() string {
	return uuid.NewString()
}
