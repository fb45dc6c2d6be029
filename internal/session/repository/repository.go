package repository

import (
	"context"
	"time"
)

// Ledger records revoked session tokens until their natural expiry.
type Ledger interface {
	// Revoke marks token revoked for ttl. Repeating it is harmless; ttl <= 0 records nothing.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	// IsRevoked reports whether token is currently marked revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
