package security

import "time"

// TestSecret is the HMAC secret used by NewTestTokenIssuer. For unit tests only.
const TestSecret = "test-secret-do-not-use"

// TestClock is a settable clock for tests. Now is safe to pass as a time source.
type TestClock struct {
	T time.Time
}

// Now returns the current test time.
func (c *TestClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *TestClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// NewTestTokenIssuer returns a TokenIssuer using TestSecret, the default 30-day TTL and a clock
// starting at a whole second. For unit tests only.
func NewTestTokenIssuer() (*TokenIssuer, *TestClock) {
	clock := &TestClock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokenIssuer(TestSecret, DefaultTokenTTL).WithClock(clock.Now), clock
}
