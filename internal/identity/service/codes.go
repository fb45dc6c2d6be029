package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// newAccountNumber returns a 7-digit public account number: the last five digits of the
// millisecond clock followed by two random digits. Collisions are resolved by retrying Create.
func newAccountNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d%02d", now.UnixMilli()%100000, n.Int64()), nil
}

// newInvitationCode returns the first 8 characters of a random UUID.
func newInvitationCode() string {
	return uuid.New().String()[:8]
}
