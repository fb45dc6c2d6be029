package repository

import (
	"context"
	"errors"
	"time"

	"account-service/backend/internal/user/domain"
)

// ErrDuplicate is returned by Create when a generated unique value (account number, invitation
// code or id) collides with an existing row. Callers regenerate and retry.
var ErrDuplicate = errors.New("user: duplicate unique value")

// Repository defines persistence for accounts. Lookups return (nil, nil) for missing rows.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByInvitationCode(ctx context.Context, code string) (*domain.User, error)
	// Create inserts u. A taken phone returns apperrors.ErrPhoneRegistered.
	Create(ctx context.Context, u *domain.User) error
	AddPoints(ctx context.Context, id string, delta int64) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
