package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/session/domain"
)

// RedisLedger stores revocations as plain keys (the raw token) holding domain.RevokedMarker.
// Entries expire with the token, so the ledger never outgrows the set of live tokens.
type RedisLedger struct {
	client redis.UniversalClient
}

// NewRedisLedger returns a ledger backed by client.
func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

// Revoke sets token to the revoked marker with the given expiry.
func (l *RedisLedger) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, token, domain.RevokedMarker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether token holds the revoked marker.
func (l *RedisLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	v, err := l.client.Get(ctx, token).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: revocation lookup: %v", apperrors.ErrStoreUnavailable, err)
	}
	return v == domain.RevokedMarker, nil
}
