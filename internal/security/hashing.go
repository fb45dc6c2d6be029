package security

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"account-service/backend/internal/apperrors"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 20
)

// Hasher hashes and verifies account passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's bounds.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. A mismatch, an empty hash or an
// unparseable hash returns apperrors.ErrInvalidCredentials.
func (h *Hasher) Compare(hash, password string) error {
	if hash == "" {
		return apperrors.ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperrors.ErrInvalidCredentials
	}
	return errors.Join(apperrors.ErrInvalidCredentials, err)
}

// ValidatePassword checks the account password length rule (6 to 20 characters).
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return apperrors.Invalid("password must be 6 to 20 characters")
	}
	return nil
}
