// Package handler serves the /user account endpoints over HTTP.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/httpx"
	"account-service/backend/internal/identity/service"
	"account-service/backend/internal/security"
	"account-service/backend/internal/server/middleware"
	sessiondomain "account-service/backend/internal/session/domain"
	"account-service/backend/internal/sessioncookie"
	userdomain "account-service/backend/internal/user/domain"
	verificationdomain "account-service/backend/internal/verification/domain"
)

// Accounts is the account service used by the handler.
type Accounts interface {
	SendCode(ctx context.Context, phone string, purpose verificationdomain.Purpose) error
	RegisterWithCode(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	RegisterWithPassword(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	LoginWithPassword(ctx context.Context, phone, password string) (*service.AuthResult, error)
	LoginWithCode(ctx context.Context, phone, code string) (*service.AuthResult, error)
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
	Profile(ctx context.Context, userID string) (*userdomain.User, error)
	Logout(ctx context.Context, token string)
	Invalidate(ctx context.Context, actorID, target string) error
	InvalidateBatch(ctx context.Context, actorID string, targets []string) (sessiondomain.BatchResult, error)
}

// Handler implements the /user routes. Token-bearing responses set the session cookie and echo
// the token in data.
type Handler struct {
	accounts Accounts
	cookies  sessioncookie.Policy
}

// NewHandler returns a Handler.
func NewHandler(accounts Accounts, cookies sessioncookie.Policy) *Handler {
	return &Handler{accounts: accounts, cookies: cookies}
}

type registerRequest struct {
	Phone            string `json:"phone"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
	InvitationCode   string `json:"invitation_code"`
}

func (r registerRequest) input() service.RegisterInput {
	return service.RegisterInput{
		Phone:            r.Phone,
		Username:         r.Username,
		Password:         r.Password,
		VerificationCode: r.VerificationCode,
		InvitationCode:   r.InvitationCode,
	}
}

type loginRequest struct {
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
	Code             string `json:"code"` // older clients
}

func (r loginRequest) code() string {
	if r.VerificationCode != "" {
		return r.VerificationCode
	}
	return r.Code
}

type resetRequest struct {
	Phone            string `json:"phone"`
	VerificationCode string `json:"verification_code"`
	NewPassword      string `json:"new_password"`
}

// ProfileView is the public shape of an account.
type ProfileView struct {
	UserID         string  `json:"user_id"`
	Account        string  `json:"account"`
	Username       string  `json:"username"`
	Phone          string  `json:"phone"`
	Points         int64   `json:"points"`
	InvitationCode string  `json:"invitation_code"`
	IsActive       bool    `json:"is_active"`
	IsVerified     bool    `json:"is_verified"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	LastLogin      *string `json:"last_login"`
}

func profileView(u *userdomain.User) ProfileView {
	v := ProfileView{
		UserID:         u.ID,
		Account:        u.Account,
		Username:       u.Username,
		Phone:          u.Phone,
		Points:         u.Points,
		InvitationCode: u.InvitationCode,
		IsActive:       u.IsActive,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      u.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if u.LastLogin != nil {
		s := u.LastLogin.UTC().Format(time.RFC3339)
		v.LastLogin = &s
	}
	return v
}

type authResponse struct {
	CurrentUser ProfileView `json:"current_user"`
	Token       string      `json:"token"`
	ExpiresAt   string      `json:"expires_at"`
}

type batchResponse struct {
	InvalidatedCount        int      `json:"invalidated_count"`
	FailedCount             int      `json:"failed_count"`
	FailedTokens            []string `json:"failed_tokens"`
	CurrentTokenInvalidated bool     `json:"current_token_invalidated"`
}

// SendRegisterCode handles GET /user/register/verification-code/send?phone=.
func (h *Handler) SendRegisterCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, verificationdomain.PurposeRegister)
}

// SendLoginCode handles GET /user/login/verification-code/send?phone=.
func (h *Handler) SendLoginCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, verificationdomain.PurposeLogin)
}

// SendResetCode handles GET /user/reset/verification-code/send?phone=.
func (h *Handler) SendResetCode(w http.ResponseWriter, r *http.Request) {
	h.sendCode(w, r, verificationdomain.PurposeReset)
}

func (h *Handler) sendCode(w http.ResponseWriter, r *http.Request, purpose verificationdomain.Purpose) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		httpx.WriteError(w, apperrors.Invalid("phone is required"))
		return
	}
	if err := h.accounts.SendCode(r.Context(), phone, purpose); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, fmt.Sprintf("%s verification code sent", purpose), nil)
}

// RegisterWithCode handles POST /user/register/verification-code-way.
func (h *Handler) RegisterWithCode(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.accounts.RegisterWithCode(r.Context(), req.input())
	h.writeRegistration(w, res, err)
}

// RegisterWithPassword handles POST /user/register/password-way.
func (h *Handler) RegisterWithPassword(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.accounts.RegisterWithPassword(r.Context(), req.input())
	h.writeRegistration(w, res, err)
}

func (h *Handler) writeRegistration(w http.ResponseWriter, res *service.AuthResult, err error) {
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	msg := "user already exists, logged in"
	if res.Created {
		msg = "user registered"
	}
	h.writeAuth(w, msg, res)
}

// LoginWithCode handles POST /user/login/verification-code-way.
func (h *Handler) LoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.accounts.LoginWithCode(r.Context(), req.Phone, req.code())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	h.writeAuth(w, "login successful", res)
}

// LoginWithPassword handles POST /user/login/password-way.
func (h *Handler) LoginWithPassword(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.accounts.LoginWithPassword(r.Context(), req.Phone, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	h.writeAuth(w, "login successful", res)
}

func (h *Handler) writeAuth(w http.ResponseWriter, msg string, res *service.AuthResult) {
	h.cookies.Write(w, res.Token)
	httpx.WriteOK(w, msg, authResponse{
		CurrentUser: profileView(res.User),
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ResetPassword handles POST /user/reset/password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Phone, req.VerificationCode, req.NewPassword); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, "password reset", nil)
}

// Logout handles POST /user/logout. It needs no authentication and always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.cookies.Token(r); ok {
		h.accounts.Logout(r.Context(), token)
	}
	h.cookies.Clear(w)
	httpx.WriteOK(w, "logout successful", nil)
}

// InvalidateCookie handles POST /user/invalidate-cookie?target_token=. Without target_token the
// caller's own token is invalidated. Invalidating the caller's token also clears the cookie.
func (h *Handler) InvalidateCookie(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	current, _ := middleware.GetToken(r.Context())
	target := r.URL.Query().Get("target_token")
	if target == "" {
		target = current
	}
	if err := h.accounts.Invalidate(r.Context(), userID, target); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if target == current {
		h.cookies.Clear(w)
	}
	httpx.WriteOK(w, "cookie invalidated", nil)
}

// InvalidateMultipleCookies handles POST /user/invalidate-multiple-cookies with a JSON array of
// tokens. Each token is revoked independently; failures are reported abbreviated.
func (h *Handler) InvalidateMultipleCookies(w http.ResponseWriter, r *http.Request) {
	var targets []string
	if err := httpx.DecodeJSON(r, &targets); err != nil {
		httpx.WriteError(w, err)
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	current, _ := middleware.GetToken(r.Context())
	res, err := h.accounts.InvalidateBatch(r.Context(), userID, targets)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	out := batchResponse{
		InvalidatedCount:        len(res.Revoked),
		FailedCount:             len(res.Failed),
		FailedTokens:            make([]string, 0, len(res.Failed)),
		CurrentTokenInvalidated: current != "" && res.Contains(current),
	}
	for _, f := range res.Failed {
		out.FailedTokens = append(out.FailedTokens, security.Abbreviate(f.Token))
	}
	if out.CurrentTokenInvalidated {
		h.cookies.Clear(w)
	}
	msg := fmt.Sprintf("invalidated %d cookies", out.InvalidatedCount)
	if out.FailedCount > 0 {
		msg += fmt.Sprintf(", %d tokens failed", out.FailedCount)
	}
	httpx.WriteOK(w, msg, out)
}

// Profile handles GET /user/profile for the authenticated caller.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httpx.WriteError(w, apperrors.ErrMissingCredential)
		return
	}
	u, err := h.accounts.Profile(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteOK(w, "profile", profileView(u))
}
