// Package domain holds the session revocation types shared by the ledger, the authority and the
// HTTP handlers.
package domain

// RevokedMarker is the value stored under a revoked token's key.
const RevokedMarker = "expired"

// BatchFailure is one token a batch revocation could not revoke, with a client-facing reason.
type BatchFailure struct {
	Token  string
	Reason string
}

// BatchResult partitions the tokens of a batch revocation. Every input token appears in exactly
// one of Revoked or Failed, in input order.
type BatchResult struct {
	Revoked []string
	Failed  []BatchFailure
}

// Contains reports whether token was revoked by the batch.
func (r BatchResult) Contains(token string) bool {
	for _, t := range r.Revoked {
		if t == token {
			return true
		}
	}
	return false
}
