// Package handler serves readiness over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"account-service/backend/internal/httpx"
	"account-service/backend/internal/logger"
)

// checkTimeout bounds each dependency ping.
const checkTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Handler serves GET /healthz. A nil pinger is skipped.
type Handler struct {
	checks map[string]Pinger
	log    *logger.Logger
}

// NewHandler returns a Handler that pings each named dependency.
func NewHandler(checks map[string]Pinger, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{checks: checks, log: log}
}

// Check pings every dependency and answers 200 with "ok" per check, or 503 naming the failures.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := p.PingContext(ctx)
		cancel()
		if err != nil {
			h.log.Warn("health check failed", "dependency", name, "error", err)
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		_ = httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.Envelope{
			Code:    http.StatusServiceUnavailable,
			Message: "not ready",
			Data:    status,
		})
		return
	}
	httpx.WriteOK(w, "ok", status)
}
