// Package service decides whether a session token is acceptable and revokes tokens on logout
// and forced invalidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/security"
	"account-service/backend/internal/session/domain"
	"account-service/backend/internal/session/repository"
	"account-service/backend/internal/telemetry"
)

// Authority combines the token issuer with the revocation ledger.
type Authority struct {
	tokens  *security.TokenIssuer
	ledger  repository.Ledger
	metrics *telemetry.Metrics
	log     *logger.Logger
}

// NewAuthority returns an Authority. metrics may be nil.
func NewAuthority(tokens *security.TokenIssuer, ledger repository.Ledger, metrics *telemetry.Metrics, log *logger.Logger) *Authority {
	if log == nil {
		log = logger.Discard()
	}
	return &Authority{tokens: tokens, ledger: ledger, metrics: metrics, log: log}
}

// Mint issues a session token for userID.
func (a *Authority) Mint(ctx context.Context, userID string) (string, time.Time, error) {
	token, exp, err := a.tokens.Mint(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	a.metrics.TokenMinted(ctx)
	return token, exp, nil
}

// Authenticate accepts token only if it is present, not revoked and decodes validly.
// The ledger is consulted before the signature so a revoked token is reported as revoked even
// after it has also expired.
func (a *Authority) Authenticate(ctx context.Context, token string) (*security.SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.ErrMissingCredential
	}
	revoked, err := a.ledger.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrRevokedCredential
	}
	return a.tokens.Decode(token)
}

// AuthenticateWithoutRevocation decodes token without consulting the ledger. Used right after
// minting, where a ledger round-trip cannot change the answer.
func (a *Authority) AuthenticateWithoutRevocation(token string) (*security.SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.ErrMissingCredential
	}
	return a.tokens.Decode(token)
}

// RevocationTTL is how long a revocation of token must be kept: the time until the token's own
// expiry. Undecodable tokens get the full token lifetime; already-expired tokens get zero.
func (a *Authority) RevocationTTL(token string) time.Duration {
	claims, err := a.tokens.Decode(token)
	switch {
	case errors.Is(err, apperrors.ErrExpiredCredential):
		return 0
	case err != nil:
		return a.tokens.TTL()
	}
	ttl := claims.ExpiresAt.Time.Sub(a.tokens.Now())
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Logout revokes token best-effort. Ledger failures are logged and never returned, so the
// caller can always clear the client cookie.
func (a *Authority) Logout(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	ttl := a.RevocationTTL(token)
	if ttl <= 0 {
		return
	}
	if err := a.ledger.Revoke(ctx, token, ttl); err != nil {
		a.metrics.RevocationFailed(ctx, "logout")
		a.log.Warn("logout: revocation not recorded", "token", security.Fingerprint(token), "error", err)
		return
	}
	a.metrics.TokenRevoked(ctx, "logout")
	a.log.Debug("logout: token revoked", "token", security.Fingerprint(token), "ttl", ttl)
}

// Invalidate revokes a specific token. Malformed and expired tokens are rejected with their
// decode error; a ledger failure is returned as apperrors.ErrStoreUnavailable.
func (a *Authority) Invalidate(ctx context.Context, token string) error {
	return a.invalidate(ctx, token, "invalidate")
}

func (a *Authority) invalidate(ctx context.Context, token, op string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.ErrMissingCredential
	}
	if _, err := a.tokens.Decode(token); err != nil {
		return err
	}
	ttl := a.RevocationTTL(token)
	if err := a.ledger.Revoke(ctx, token, ttl); err != nil {
		a.metrics.RevocationFailed(ctx, op)
		a.log.Error("invalidate: revocation failed", "token", security.Fingerprint(token), "error", err)
		if !errors.Is(err, apperrors.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		return err
	}
	a.metrics.TokenRevoked(ctx, op)
	a.log.Info("token invalidated", "token", security.Fingerprint(token), "ttl", ttl)
	return nil
}

// RevokeBatch invalidates each token independently. A failure on one token never prevents the
// others from being revoked.
func (a *Authority) RevokeBatch(ctx context.Context, tokens []string) domain.BatchResult {
	res := domain.BatchResult{
		Revoked: make([]string, 0, len(tokens)),
		Failed:  []domain.BatchFailure{},
	}
	for _, tok := range tokens {
		if err := a.invalidate(ctx, tok, "batch"); err != nil {
			res.Failed = append(res.Failed, domain.BatchFailure{Token: tok, Reason: apperrors.PublicMessage(err)})
			continue
		}
		res.Revoked = append(res.Revoked, tok)
	}
	return res
}
