package domain

import (
	"errors"
	"time"
)

// User is an account identified by its phone number.
type User struct {
	ID             string
	Account        string // short public account number
	Phone          string
	Username       string
	PasswordHash   string // bcrypt; empty for accounts created by code registration
	Points         int64
	InvitationCode string
	IsActive       bool
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLogin      *time.Time // nil until the first login
}

// DefaultUsername is the username given to new accounts that did not choose one.
func DefaultUsername(phone string) string {
	return "user" + phone
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Phone == "" {
		return errors.New("phone is required")
	}
	if u.Account == "" {
		return errors.New("account is required")
	}
	if u.InvitationCode == "" {
		return errors.New("invitation code is required")
	}
	if u.Username == "" {
		u.Username = DefaultUsername(u.Phone)
	}
	return nil
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
