// Package service issues verification codes over SMS and checks submitted codes.
package service

import (
	"context"
	"fmt"
	"time"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/telemetry"
	"account-service/backend/internal/verification"
	"account-service/backend/internal/verification/domain"
	"account-service/backend/internal/verification/repository"
	"account-service/backend/internal/verification/sms"
)

// Options tunes broker behavior.
type Options struct {
	// SingleUse deletes a code after its first successful check. Off by default: a code may be
	// checked any number of times until it expires.
	SingleUse bool
	// LogCodes logs issued codes at debug level. Must be off in production.
	LogCodes bool
}

// Broker issues and verifies purpose-scoped verification codes.
type Broker struct {
	store     repository.CodeStore
	sender    sms.Sender
	templates sms.Templates
	opts      Options
	metrics   *telemetry.Metrics
	log       *logger.Logger
	nowF      func() time.Time
}

// NewBroker returns a Broker. metrics may be nil.
func NewBroker(store repository.CodeStore, sender sms.Sender, templates sms.Templates, opts Options, metrics *telemetry.Metrics, log *logger.Logger) *Broker {
	if log == nil {
		log = logger.Discard()
	}
	return &Broker{
		store:     store,
		sender:    sender,
		templates: templates,
		opts:      opts,
		metrics:   metrics,
		log:       log,
		nowF:      time.Now,
	}
}

// WithClock returns a copy of b that reads the current time from now.
func (b *Broker) WithClock(now func() time.Time) *Broker {
	cp := *b
	cp.nowF = now
	return &cp
}

// Issue generates a code for phone and purpose, delivers it, then stores it for domain.CodeTTL.
// Delivery failure is returned as apperrors.ErrDeliveryFailed and nothing is stored, so the
// caller never holds a code the user did not receive. A newer code replaces any live one.
func (b *Broker) Issue(ctx context.Context, phone string, purpose domain.Purpose) (string, error) {
	if err := verification.ValidatePhone(phone); err != nil {
		return "", err
	}
	code, err := verification.GenerateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	msg := sms.Message{Phone: phone, Purpose: purpose, TemplateID: b.templates[purpose], Code: code}
	if err := b.sender.Send(ctx, msg); err != nil {
		b.log.Error("verification code delivery failed", "purpose", purpose, "phone", phone, "error", err)
		return "", fmt.Errorf("%w: %v", apperrors.ErrDeliveryFailed, err)
	}
	entry := domain.Entry{Code: code, ExpiresAt: b.nowF().Add(domain.CodeTTL)}
	if err := b.store.Put(ctx, purpose.Key(phone), entry, domain.CodeTTL+domain.ExpiryGrace); err != nil {
		return "", err
	}
	b.metrics.CodeIssued(ctx, string(purpose))
	if b.opts.LogCodes {
		b.log.Debug("verification code issued", "purpose", purpose, "phone", phone, "code", code)
	} else {
		b.log.Info("verification code issued", "purpose", purpose, "phone", phone)
	}
	return code, nil
}

// Verify checks code against the live code for phone and purpose. A missing or different code is
// apperrors.ErrCodeMismatch; a matching code past its expiry is apperrors.ErrCodeExpired.
func (b *Broker) Verify(ctx context.Context, code, phone string, purpose domain.Purpose) error {
	key := purpose.Key(phone)
	entry, err := b.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if entry == nil || code == "" || !verification.CodeEqual(code, entry.Code) {
		b.metrics.VerificationFailed(ctx, string(purpose), "mismatch")
		return apperrors.ErrCodeMismatch
	}
	if entry.Expired(b.nowF()) {
		b.metrics.VerificationFailed(ctx, string(purpose), "expired")
		return apperrors.ErrCodeExpired
	}
	if b.opts.SingleUse {
		if err := b.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
