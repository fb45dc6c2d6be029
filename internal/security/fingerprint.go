package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short SHA-256 digest of token for logs and audit records, so raw
// session tokens never reach log sinks.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:6])
}

// Abbreviate returns the first 20 characters of token followed by "...", the form reported back to
// clients for tokens that failed batch invalidation.
func Abbreviate(token string) string {
	const keep = 20
	if len(token) <= keep {
		return token + "..."
	}
	return token[:keep] + "..."
}
