package service

import (
	"context"
	"sync"
	"time"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/security"
	sessionservice "account-service/backend/internal/session/service"
	userdomain "account-service/backend/internal/user/domain"
	userrepo "account-service/backend/internal/user/repository"
	verificationdomain "account-service/backend/internal/verification/domain"
)

// memUserRepo implements userrepo.Repository in memory.
type memUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*userdomain.User
	dupLeft   int // Create returns ErrDuplicate this many times first
	createErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}}
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUserRepo) deactivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.IsActive = false
	}
}

func (m *memUserRepo) find(match func(*userdomain.User) bool) *userdomain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUserRepo) GetByPhone(ctx context.Context, phone string) (*userdomain.User, error) {
	return m.find(func(u *userdomain.User) bool { return u.Phone == phone }), nil
}

func (m *memUserRepo) GetByInvitationCode(ctx context.Context, code string) (*userdomain.User, error) {
	return m.find(func(u *userdomain.User) bool { return u.InvitationCode == code }), nil
}

func (m *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.dupLeft > 0 {
		m.dupLeft--
		return userrepo.ErrDuplicate
	}
	for _, existing := range m.byID {
		if existing.Phone == u.Phone {
			return apperrors.ErrPhoneRegistered
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUserRepo) AddPoints(ctx context.Context, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	u.Points += delta
	return nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (m *memUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	u.LastLogin = &at
	return nil
}

// fakeCodes accepts the code stored for each (purpose, phone) pair.
type fakeCodes struct {
	codes   map[string]string
	issued  int
	sendErr error
}

func newFakeCodes() *fakeCodes { return &fakeCodes{codes: map[string]string{}} }

func (f *fakeCodes) set(purpose verificationdomain.Purpose, phone, code string) {
	f.codes[purpose.Key(phone)] = code
}

func (f *fakeCodes) Issue(ctx context.Context, phone string, purpose verificationdomain.Purpose) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.issued++
	f.set(purpose, phone, "123456")
	return "123456", nil
}

func (f *fakeCodes) Verify(ctx context.Context, code, phone string, purpose verificationdomain.Purpose) error {
	want, ok := f.codes[purpose.Key(phone)]
	if !ok || want != code {
		return apperrors.ErrCodeMismatch
	}
	return nil
}

// memLedger implements the revocation ledger in memory.
type memLedger struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (l *memLedger) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ttl > 0 {
		l.revoked[token] = ttl
	}
	return nil
}

func (l *memLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[token]
	return ok, nil
}

type auditEvent struct {
	UserID, Action, Resource, Metadata string
}

type recordingAudit struct {
	mu     sync.Mutex
	events []auditEvent
}

func (r *recordingAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, auditEvent{userID, action, resource, metadata})
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	svc       *AccountService
	users     *memUserRepo
	codes     *fakeCodes
	ledger    *memLedger
	audit     *recordingAudit
	authority *sessionservice.Authority
	clock     *security.TestClock
}

func newTestEnv() *testEnv {
	tokens, clock := security.NewTestTokenIssuer()
	ledger := &memLedger{revoked: map[string]time.Duration{}}
	authority := sessionservice.NewAuthority(tokens, ledger, nil, logger.Discard())
	users := newMemUserRepo()
	codes := newFakeCodes()
	audit := &recordingAudit{}
	svc := NewAccountService(users, security.NewHasher(4), authority, codes, audit, Points{Init: 100, Invite: 1000}, logger.Discard()).
		WithClock(clock.Now)
	return &testEnv{svc: svc, users: users, codes: codes, ledger: ledger, audit: audit, authority: authority, clock: clock}
}
