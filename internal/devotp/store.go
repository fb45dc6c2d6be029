// Package devotp keeps issued verification codes in memory so they can be read back through
// GET /dev/verification-code when dev verification codes are enabled. Never used in production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain verification codes by purpose and phone for dev-only retrieval.
type Store interface {
	// Put stores code for (purpose, phone) until expiresAt, replacing any earlier code.
	Put(ctx context.Context, purpose, phone, code string, expiresAt time.Time)
	// Get returns the code for (purpose, phone) if present and not expired.
	Get(ctx context.Context, purpose, phone string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns a store that reads the current time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: now,
	}
}

func key(purpose, phone string) string {
	return purpose + ":" + phone
}

// Put stores code for (purpose, phone) until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, purpose, phone, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(purpose, phone)] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for (purpose, phone) if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, purpose, phone string) (string, bool) {
	k := key(purpose, phone)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	now := s.nowF()
	if !e.expiresAt.After(now) {
		s.mu.Lock()
		// A Put may have replaced the entry since the read lock was released.
		if cur, ok := s.m[k]; ok && !cur.expiresAt.After(now) {
			delete(s.m, k)
		}
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
