package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"account-service/backend/internal/httpx"
)

// ClientIP resolves the client address once per request and stores it in the context for the
// audit logger.
func ClientIP() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey, clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP returns the client IP from x-forwarded-for, x-real-ip or the remote address, or "unknown".
// Header values that do not parse as an IP are skipped, so the stored value always fits the audit
// ip column.
func clientIP(r *http.Request) string {
	if s := r.Header.Get("X-Forwarded-For"); s != "" {
		first, _, _ := strings.Cut(s, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := parseIP(host); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}
	return "unknown"
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
