// Package domain holds verification code purposes and the stored code entry.
package domain

import (
	"fmt"
	"time"
)

// CodeTTL is how long an issued verification code stays valid.
const CodeTTL = 5 * time.Minute

// ExpiryGrace keeps an entry readable past its expiry so a late check reports the code as expired
// instead of missing.
const ExpiryGrace = time.Minute

// Purpose scopes a verification code. Codes for one purpose never satisfy another.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeLogin    Purpose = "login"
	PurposeReset    Purpose = "reset"
)

// Purposes lists every supported purpose.
var Purposes = []Purpose{PurposeRegister, PurposeLogin, PurposeReset}

// ParsePurpose validates s as a Purpose.
func ParsePurpose(s string) (Purpose, error) {
	for _, p := range Purposes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown verification purpose %q", s)
}

// KeyPrefix is the store key prefix for codes of this purpose.
func (p Purpose) KeyPrefix() string {
	return "user:" + string(p) + ":code:"
}

// Key is the store key for the code of this purpose sent to phone.
func (p Purpose) Key(phone string) string {
	return p.KeyPrefix() + phone
}

// Entry is a stored verification code.
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
