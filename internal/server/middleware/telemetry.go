package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"account-service/backend/internal/httpx"
	"account-service/backend/internal/telemetry"
)

// httpRequestDetail is the JSON shape stored in Event.Detail for http_request events.
type httpRequestDetail struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits an http_request event after each request. Best-effort: the emit runs
// asynchronously and never affects the response. If emitter is nil, the middleware no-ops.
// skipPaths are not emitted (e.g. /healthz).
func Telemetry(emitter telemetry.EventEmitter, skipPaths map[string]bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := httpx.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)
			if skipPaths[r.URL.Path] {
				return
			}
			detail, _ := json.Marshal(httpRequestDetail{
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rec.Status,
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   ClientIPFromContext(r.Context()),
			})
			telemetry.EmitAsync(emitter, &telemetry.Event{
				Type:      "http_request",
				Source:    "http",
				Detail:    string(detail),
				CreatedAt: start.UTC(),
			})
		})
	}
}
