package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "account-service"

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	codesIssued          metric.Int64Counter
	verificationFailures metric.Int64Counter
	tokensMinted         metric.Int64Counter
	tokensRevoked        metric.Int64Counter
	revocationFailures   metric.Int64Counter
}

// NewMetrics registers the counters on a meter from provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)
	m := &Metrics{}
	var err error
	if m.codesIssued, err = meter.Int64Counter("verification_codes_issued",
		metric.WithDescription("Verification codes generated, delivered and stored")); err != nil {
		return nil, err
	}
	if m.verificationFailures, err = meter.Int64Counter("verification_failures",
		metric.WithDescription("Verification code checks that failed")); err != nil {
		return nil, err
	}
	if m.tokensMinted, err = meter.Int64Counter("tokens_minted",
		metric.WithDescription("Session tokens issued")); err != nil {
		return nil, err
	}
	if m.tokensRevoked, err = meter.Int64Counter("tokens_revoked",
		metric.WithDescription("Session tokens added to the revocation ledger")); err != nil {
		return nil, err
	}
	if m.revocationFailures, err = meter.Int64Counter("revocation_failures",
		metric.WithDescription("Revocations that could not be recorded")); err != nil {
		return nil, err
	}
	return m, nil
}

// CodeIssued records a delivered and stored verification code for purpose.
func (m *Metrics) CodeIssued(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.codesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose)))
}

// VerificationFailed records a failed code check; reason is "mismatch" or "expired".
func (m *Metrics) VerificationFailed(ctx context.Context, purpose, reason string) {
	if m == nil {
		return
	}
	m.verificationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("reason", reason),
	))
}

// TokenMinted records an issued session token.
func (m *Metrics) TokenMinted(ctx context.Context) {
	if m == nil {
		return
	}
	m.tokensMinted.Add(ctx, 1)
}

// TokenRevoked records a revocation; op is "logout", "invalidate" or "batch".
func (m *Metrics) TokenRevoked(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.tokensRevoked.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RevocationFailed records a revocation the ledger could not persist.
func (m *Metrics) RevocationFailed(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.revocationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
