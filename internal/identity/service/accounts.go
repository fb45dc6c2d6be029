// Package service implements the phone account flows: verification code dispatch, registration,
// login, password reset and profile lookup.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"account-service/backend/internal/apperrors"
	auditdomain "account-service/backend/internal/audit/domain"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/security"
	sessiondomain "account-service/backend/internal/session/domain"
	userdomain "account-service/backend/internal/user/domain"
	userrepo "account-service/backend/internal/user/repository"
	"account-service/backend/internal/verification"
	verificationdomain "account-service/backend/internal/verification/domain"
)

// maxCreateAttempts bounds retries when a generated account number or invitation code collides.
const maxCreateAttempts = 5

// CodeBroker is the verification code broker needed by the account flows.
type CodeBroker interface {
	Issue(ctx context.Context, phone string, purpose verificationdomain.Purpose) (string, error)
	Verify(ctx context.Context, code, phone string, purpose verificationdomain.Purpose) error
}

// SessionAuthority is the session authority needed by the account flows.
type SessionAuthority interface {
	Mint(ctx context.Context, userID string) (string, time.Time, error)
	AuthenticateWithoutRevocation(token string) (*security.SessionClaims, error)
	Logout(ctx context.Context, token string)
	Invalidate(ctx context.Context, token string) error
	RevokeBatch(ctx context.Context, tokens []string) sessiondomain.BatchResult
}

// AuditLogger records auth events. Implementations must be best-effort.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Points are the balances granted at registration.
type Points struct {
	Init   int64 // every new account
	Invite int64 // both sides of an accepted invitation
}

// AuthResult is the outcome of a successful registration or login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *userdomain.User
	// Created is true when registration created a new account rather than logging into an
	// existing one.
	Created bool
}

// RegisterInput carries a registration request. Username and InvitationCode are optional;
// Password is optional for the code way.
type RegisterInput struct {
	Phone            string
	Username         string
	Password         string
	VerificationCode string
	InvitationCode   string
}

// AccountService implements registration, login, password reset and profile retrieval.
type AccountService struct {
	users    userrepo.Repository
	hasher   *security.Hasher
	sessions SessionAuthority
	codes    CodeBroker
	audit    AuditLogger
	points   Points
	log      *logger.Logger
	nowF     func() time.Time
}

// NewAccountService returns an AccountService with the given dependencies. audit may be nil.
func NewAccountService(
	users userrepo.Repository,
	hasher *security.Hasher,
	sessions SessionAuthority,
	codes CodeBroker,
	audit AuditLogger,
	points Points,
	log *logger.Logger,
) *AccountService {
	if log == nil {
		log = logger.Discard()
	}
	if audit == nil {
		audit = nopAudit{}
	}
	return &AccountService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		codes:    codes,
		audit:    audit,
		points:   points,
		log:      log,
		nowF:     time.Now,
	}
}

// WithClock returns a copy of s that reads the current time from now.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	cp := *s
	cp.nowF = now
	return &cp
}

// SendCode issues and delivers a verification code for phone and purpose.
func (s *AccountService) SendCode(ctx context.Context, phone string, purpose verificationdomain.Purpose) error {
	_, err := s.codes.Issue(ctx, strings.TrimSpace(phone), purpose)
	return err
}

// RegisterWithCode verifies the register code for the phone, then logs into the existing account
// or creates a new one.
func (s *AccountService) RegisterWithCode(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if err := verification.ValidatePhone(in.Phone); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.VerificationCode) == "" {
		return nil, apperrors.Invalid("verification code is required")
	}
	if in.Password != "" {
		if err := security.ValidatePassword(in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.codes.Verify(ctx, in.VerificationCode, in.Phone, verificationdomain.PurposeRegister); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByPhone(ctx, in.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.login(ctx, existing, "register_code")
	}
	return s.create(ctx, in, "code")
}

// RegisterWithPassword creates an account with a password. If the phone is already registered the
// password must match the account's, in which case the caller is logged in; otherwise
// apperrors.ErrPhoneRegistered is returned.
func (s *AccountService) RegisterWithPassword(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if err := verification.ValidatePhone(in.Phone); err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByPhone(ctx, in.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.HasPassword() || s.hasher.Compare(existing.PasswordHash, in.Password) != nil {
			s.audit.LogEvent(ctx, existing.ID, auditdomain.ActionLoginFailure, auditdomain.ResourceUser, "register_password")
			return nil, apperrors.ErrPhoneRegistered
		}
		return s.login(ctx, existing, "register_password")
	}
	return s.create(ctx, in, "password")
}

// LoginWithPassword logs into the account registered for phone.
func (s *AccountService) LoginWithPassword(ctx context.Context, phone, password string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if err := verification.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperrors.Invalid("password is required")
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	if !u.IsActive || !u.HasPassword() {
		s.audit.LogEvent(ctx, u.ID, auditdomain.ActionLoginFailure, auditdomain.ResourceUser, "password")
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.audit.LogEvent(ctx, u.ID, auditdomain.ActionLoginFailure, auditdomain.ResourceUser, "password")
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.login(ctx, u, "password")
}

// LoginWithCode verifies the login code for phone and logs into its account.
func (s *AccountService) LoginWithCode(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if err := verification.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.Invalid("verification code is required")
	}
	if err := s.codes.Verify(ctx, code, phone, verificationdomain.PurposeLogin); err != nil {
		s.audit.LogEvent(ctx, "", auditdomain.ActionLoginFailure, auditdomain.ResourceUser, "code")
		return nil, err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	return s.login(ctx, u, "code")
}

// ResetPassword verifies the reset code for phone and replaces the account password.
// Existing session tokens stay valid.
func (s *AccountService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	phone = strings.TrimSpace(phone)
	if err := verification.ValidatePhone(phone); err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return apperrors.Invalid("verification code is required")
	}
	if err := security.ValidatePassword(newPassword); err != nil {
		return err
	}
	if err := s.codes.Verify(ctx, code, phone, verificationdomain.PurposeReset); err != nil {
		return err
	}
	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if u == nil {
		return apperrors.ErrAccountNotFound
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.nowF().UTC()); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, u.ID, auditdomain.ActionPasswordReset, auditdomain.ResourceUser, "")
	s.log.Info("password reset", "user_id", u.ID)
	return nil
}

// Profile returns the account for userID.
func (s *AccountService) Profile(ctx context.Context, userID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	return u, nil
}

// login mints a session for u. Every sign-in path goes through here, so inactive accounts are
// refused in one place.
func (s *AccountService) login(ctx context.Context, u *userdomain.User, method string) (*AuthResult, error) {
	if !u.IsActive {
		s.audit.LogEvent(ctx, u.ID, auditdomain.ActionLoginFailure, auditdomain.ResourceUser, method)
		return nil, apperrors.ErrInvalidCredentials
	}
	token, exp, err := s.sessions.Mint(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	now := s.nowF().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("login: last_login not updated", "user_id", u.ID, "error", err)
	} else {
		u.LastLogin = &now
	}
	s.audit.LogEvent(ctx, u.ID, auditdomain.ActionLogin, auditdomain.ResourceSession, method)
	s.log.Info("user logged in", "user_id", u.ID, "method", method, "token", security.Fingerprint(token))
	return &AuthResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, method string) (*AuthResult, error) {
	var hash string
	if in.Password != "" {
		h, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}
	points := s.points.Init
	var inviter *userdomain.User
	if code := strings.TrimSpace(in.InvitationCode); code != "" {
		u, err := s.users.GetByInvitationCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if u != nil {
			inviter = u
			points += s.points.Invite
		}
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = userdomain.DefaultUsername(in.Phone)
	}

	var u *userdomain.User
	for attempt := 1; ; attempt++ {
		now := s.nowF().UTC()
		account, err := newAccountNumber(now)
		if err != nil {
			return nil, err
		}
		u = &userdomain.User{
			ID:             uuid.New().String(),
			Account:        account,
			Phone:          in.Phone,
			Username:       username,
			PasswordHash:   hash,
			Points:         points,
			InvitationCode: newInvitationCode(),
			IsActive:       true,
			IsVerified:     method == "code",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := u.Validate(); err != nil {
			return nil, apperrors.Invalid(err.Error())
		}
		err = s.users.Create(ctx, u)
		if err == nil {
			break
		}
		if !errors.Is(err, userrepo.ErrDuplicate) || attempt >= maxCreateAttempts {
			return nil, fmt.Errorf("create account: %w", err)
		}
	}

	if inviter != nil && s.points.Invite != 0 {
		if err := s.users.AddPoints(ctx, inviter.ID, s.points.Invite); err != nil {
			s.log.Warn("register: inviter points not granted", "inviter_id", inviter.ID, "error", err)
		}
	}
	s.audit.LogEvent(ctx, u.ID, auditdomain.ActionRegister, auditdomain.ResourceUser, method)
	s.log.Info("user registered", "user_id", u.ID, "method", method, "invited", inviter != nil)

	res, err := s.login(ctx, u, method)
	if err != nil {
		return nil, err
	}
	res.Created = true
	return res, nil
}

type nopAudit struct{}

func (nopAudit) LogEvent(context.Context, string, string, string, string) {}
