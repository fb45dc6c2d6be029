// Package audit records auth events (registration, login, logout, invalidation) for later review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"account-service/backend/internal/audit/domain"
	auditrepo "account-service/backend/internal/audit/repository"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/telemetry"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do
// not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, and mirrors each event to an
// optional telemetry emitter.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	log         *logger.Logger
	nowF        func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo. ipExtractor and emitter may be nil;
// without an extractor the IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter, log *logger.Logger) *Logger {
	if log == nil {
		log = logger.Discard()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter, log: log, nowF: time.Now}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	now := l.nowF().UTC()
	telemetry.EmitAsync(l.emitter, &telemetry.Event{
		Type:      action,
		UserID:    userID,
		Source:    resource,
		Detail:    metadata,
		CreatedAt: now,
	})
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: now,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn("audit: failed to log event", "action", action, "resource", resource, "error", err)
	}
}
