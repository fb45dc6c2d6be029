package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"account-service/backend/internal/apperrors"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

// SessionClaims holds the JWT claims of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenIssuer mints and decodes HS256 session tokens with a symmetric secret. The algorithm is
// carried in the token header, so any holder of the secret can verify tokens independently.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	nowF   func() time.Time
}

// NewTokenIssuer returns a TokenIssuer signing with secret. ttl <= 0 uses DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		nowF:   time.Now,
	}
}

// WithClock returns a copy of p that reads the current time from now.
func (p *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *p
	cp.nowF = now
	return &cp
}

// TTL returns the lifetime of minted tokens.
func (p *TokenIssuer) TTL() time.Duration {
	return p.ttl
}

// Now returns the issuer's current time.
func (p *TokenIssuer) Now() time.Time {
	return p.nowF()
}

// Mint issues a signed token for userID. Returns the token and its expiry (second precision, as
// encoded in the exp claim).
func (p *TokenIssuer) Mint(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, errors.New("security: subject id is required")
	}
	now := p.nowF().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
		UserID: userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Decode verifies the token signature and expiry and returns its claims.
// Returns apperrors.ErrExpiredCredential when exp is at or before now, and
// apperrors.ErrMalformedCredential for bad signatures, unparseable input or missing claims.
// The revocation ledger is not consulted.
func (p *TokenIssuer) Decode(tokenString string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowF),
	)
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrExpiredCredential
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedCredential, err)
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return nil, apperrors.ErrMalformedCredential
	}
	return claims, nil
}
