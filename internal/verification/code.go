// Package verification issues and checks SMS verification codes.
package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"regexp"
	"strconv"

	"account-service/backend/internal/apperrors"
)

const (
	codeMin = 100000
	codeMax = 999999
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidatePhone accepts 11-digit mainland mobile numbers: a leading 1, then 3-9, then nine digits.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return apperrors.ErrInvalidPhoneFormat
	}
	return nil
}

// GenerateCode returns a 6-digit code drawn uniformly from [100000, 999999] using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// CodeEqual compares a submitted code with the stored one in constant time.
func CodeEqual(provided, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}
