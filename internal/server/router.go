// Package server assembles the HTTP routes and middleware chain.
package server

import (
	"net/http"

	devotphandler "account-service/backend/internal/devotp/handler"
	healthhandler "account-service/backend/internal/health/handler"
	"account-service/backend/internal/httpx"
	identityhandler "account-service/backend/internal/identity/handler"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/server/middleware"
	"account-service/backend/internal/sessioncookie"
	"account-service/backend/internal/telemetry"
)

// Version is reported by the root banner.
const Version = "0.1.0"

// Deps holds the handlers and collaborators mounted by NewRouter.
type Deps struct {
	// Accounts serves the /user routes. Required.
	Accounts *identityhandler.Handler
	// Auth validates session tokens for authenticated routes. Required.
	Auth middleware.Authenticator
	// Cookies is the session cookie policy used for credential lookup.
	Cookies sessioncookie.Policy
	// Health serves GET /healthz. If nil, the route is not registered.
	Health *healthhandler.Handler
	// DevCodes serves GET /dev/verification-code. Set only when dev verification codes are
	// enabled and not production.
	DevCodes *devotphandler.Handler
	// Emitter receives per-request telemetry events. May be nil.
	Emitter telemetry.EventEmitter
	Log     *logger.Logger
}

// NewRouter returns the HTTP handler serving every route.
//
// Route → handler mapping:
//   - /user/...               → internal/identity/handler
//   - /healthz                → internal/health/handler
//   - /dev/verification-code  → internal/devotp/handler
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	mux := http.NewServeMux()
	a := deps.Accounts
	// Every mounted authenticated route reads or changes account or session state, so all of them
	// consult the ledger. RequireAuth(..., false) is available for reads that only ever follow a
	// fresh login; none are mounted today.
	authed := middleware.RequireAuth(deps.Auth, deps.Cookies, true)

	mux.HandleFunc("GET /{$}", banner)

	mux.HandleFunc("GET /user/register/verification-code/send", a.SendRegisterCode)
	mux.HandleFunc("GET /user/login/verification-code/send", a.SendLoginCode)
	mux.HandleFunc("GET /user/reset/verification-code/send", a.SendResetCode)
	mux.HandleFunc("POST /user/register/verification-code-way", a.RegisterWithCode)
	mux.HandleFunc("POST /user/register/password-way", a.RegisterWithPassword)
	mux.HandleFunc("POST /user/login/verification-code-way", a.LoginWithCode)
	mux.HandleFunc("POST /user/login/password-way", a.LoginWithPassword)
	mux.HandleFunc("POST /user/reset/password", a.ResetPassword)
	mux.HandleFunc("POST /user/logout", a.Logout)
	mux.Handle("POST /user/invalidate-cookie", authed(http.HandlerFunc(a.InvalidateCookie)))
	mux.Handle("POST /user/invalidate-multiple-cookies", authed(http.HandlerFunc(a.InvalidateMultipleCookies)))
	mux.Handle("GET /user/profile", authed(http.HandlerFunc(a.Profile)))

	if deps.Health != nil {
		mux.HandleFunc("GET /healthz", deps.Health.Check)
	}
	if deps.DevCodes != nil {
		mux.HandleFunc("GET /dev/verification-code", deps.DevCodes.GetCode)
		log.Warn("dev verification code endpoint enabled")
	}

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.Recover(log),
		middleware.ClientIP(),
		httpx.AccessLog(log),
		middleware.Telemetry(deps.Emitter, map[string]bool{"/healthz": true}),
	)
}

func banner(w http.ResponseWriter, r *http.Request) {
	httpx.WriteOK(w, "account service", map[string]string{"status": "running", "version": Version})
}
