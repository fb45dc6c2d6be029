// Package sessioncookie centralizes session token cookie behavior and credential lookup.
package sessioncookie

import (
	"net/http"
	"strings"

	"account-service/backend/internal/config"
)

// Policy holds the cookie attributes applied when writing or clearing the session cookie.
type Policy struct {
	Name     string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	Domain   string
	Path     string
}

// PolicyFromConfig builds the cookie policy from the environment section.
func PolicyFromConfig(cfg *config.EnvConfig) Policy {
	p := Policy{
		Name:     cfg.CookieName,
		MaxAge:   cfg.CookieMaxAge,
		Secure:   cfg.CookieSecure,
		HTTPOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.SameSite(),
		Domain:   cfg.CookieDomain,
		Path:     cfg.CookiePath,
	}
	if p.Name == "" {
		p.Name = "auth_token"
	}
	if p.Path == "" {
		p.Path = "/"
	}
	return p
}

// Read returns the trimmed session cookie value when present.
func (p Policy) Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(p.Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Token returns the request's session token: the cookie first, then an
// "Authorization: Bearer" header.
func (p Policy) Token(r *http.Request) (string, bool) {
	if v, ok := p.Read(r); ok {
		return v, true
	}
	if r == nil {
		return "", false
	}
	const prefix = "bearer "
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}

// Write sets the session cookie to token.
func (p Policy) Write(w http.ResponseWriter, token string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    strings.TrimSpace(token),
		Path:     p.Path,
		Domain:   p.Domain,
		MaxAge:   p.MaxAge,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}

// Clear expires the session cookie. Name, domain and path match Write so the browser drops it.
func (p Policy) Clear(w http.ResponseWriter) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     p.Path,
		Domain:   p.Domain,
		MaxAge:   -1,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	})
}
