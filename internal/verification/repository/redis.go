package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/verification/domain"
)

// RedisCodeStore keeps each code as a JSON document under its purpose-scoped key.
type RedisCodeStore struct {
	client redis.UniversalClient
}

// NewRedisCodeStore returns a CodeStore backed by client.
func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

// Put stores entry under key for ttl, replacing any previous code.
func (s *RedisCodeStore) Put(ctx context.Context, key string, entry domain.Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: store code: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the entry under key, or nil if none. An unreadable value is treated as absent.
func (s *RedisCodeStore) Get(ctx context.Context, key string) (*domain.Entry, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read code: %v", apperrors.ErrStoreUnavailable, err)
	}
	var e domain.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, nil
	}
	return &e, nil
}

// Delete removes the code under key. Deleting a missing key is not an error.
func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: delete code: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}
