// Package telemetry carries auth event emission and the service counters exported through OpenTelemetry.
package telemetry

import (
	"context"
	"time"
)

// Event is a single auth event (register, login, logout, invalidate...). UserID may be empty
// for failures that never resolved an account.
type Event struct {
	Type      string
	UserID    string
	Source    string
	Detail    string
	CreatedAt time.Time
}

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
