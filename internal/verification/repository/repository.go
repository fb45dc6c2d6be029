package repository

import (
	"context"
	"time"

	"account-service/backend/internal/verification/domain"
)

// CodeStore persists verification codes keyed by purpose and phone. At most one code is live per
// key; Put overwrites.
type CodeStore interface {
	Put(ctx context.Context, key string, entry domain.Entry, ttl time.Duration) error
	// Get returns the entry for key, or nil if none is stored.
	Get(ctx context.Context, key string) (*domain.Entry, error)
	Delete(ctx context.Context, key string) error
}
