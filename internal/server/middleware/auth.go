// Package middleware holds the request-scoped HTTP middleware: authentication, client IP
// resolution and request telemetry.
package middleware

import (
	"context"
	"net/http"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/httpx"
	"account-service/backend/internal/security"
	"account-service/backend/internal/sessioncookie"
)

// Authenticator validates session tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*security.SessionClaims, error)
	AuthenticateWithoutRevocation(token string) (*security.SessionClaims, error)
}

// RequireAuth rejects requests without an acceptable session token and sets user_id and the token
// in context for the wrapped handler. The token is read from the session cookie, then the Bearer
// header. With checkRevocation the revocation ledger is consulted; without it only the signature
// and expiry are checked, which suits low-stakes reads made right after a login.
func RequireAuth(auth Authenticator, cookies sessioncookie.Policy, checkRevocation bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := cookies.Token(r)
			if !ok {
				httpx.WriteError(w, apperrors.ErrMissingCredential)
				return
			}
			var (
				claims *security.SessionClaims
				err    error
			)
			if checkRevocation {
				claims, err = auth.Authenticate(r.Context(), token)
			} else {
				claims, err = auth.AuthenticateWithoutRevocation(token)
			}
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			ctx := WithIdentity(r.Context(), claims.UserID, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
