package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/identity/service"
	"account-service/backend/internal/server/middleware"
	sessiondomain "account-service/backend/internal/session/domain"
	"account-service/backend/internal/sessioncookie"
	userdomain "account-service/backend/internal/user/domain"
	verificationdomain "account-service/backend/internal/verification/domain"
)

var testCookies = sessioncookie.Policy{Name: "auth_token", Path: "/", MaxAge: 3600, HTTPOnly: true, SameSite: http.SameSiteLaxMode}

var testUser = &userdomain.User{
	ID: "u-1", Account: "1234567", Phone: "13800138000", Username: "user13800138000",
	Points: 100, InvitationCode: "abcd1234", IsActive: true,
	CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
}

type fakeAccounts struct {
	err         error
	created     bool
	lastPurpose verificationdomain.Purpose
	lastInput   service.RegisterInput
	lastCode    string
	loggedOut   []string
	invalidated []string
	batch       sessiondomain.BatchResult
	lastActor   string
}

func (f *fakeAccounts) result() (*service.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuthResult{Token: "tok-new", ExpiresAt: time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC), User: testUser, Created: f.created}, nil
}

func (f *fakeAccounts) SendCode(ctx context.Context, phone string, purpose verificationdomain.Purpose) error {
	f.lastPurpose = purpose
	return f.err
}

func (f *fakeAccounts) RegisterWithCode(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.lastInput = in
	return f.result()
}

func (f *fakeAccounts) RegisterWithPassword(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.lastInput = in
	return f.result()
}

func (f *fakeAccounts) LoginWithPassword(ctx context.Context, phone, password string) (*service.AuthResult, error) {
	return f.result()
}

func (f *fakeAccounts) LoginWithCode(ctx context.Context, phone, code string) (*service.AuthResult, error) {
	f.lastCode = code
	return f.result()
}

func (f *fakeAccounts) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	f.lastCode = code
	return f.err
}

func (f *fakeAccounts) Profile(ctx context.Context, userID string) (*userdomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testUser, nil
}

func (f *fakeAccounts) Logout(ctx context.Context, token string) {
	f.loggedOut = append(f.loggedOut, token)
}

func (f *fakeAccounts) Invalidate(ctx context.Context, actorID, target string) error {
	f.lastActor = actorID
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, target)
	return nil
}

func (f *fakeAccounts) InvalidateBatch(ctx context.Context, actorID string, targets []string) (sessiondomain.BatchResult, error) {
	f.lastActor = actorID
	return f.batch, f.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func authed(r *http.Request, userID, token string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), userID, token))
}

func TestSendCode(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, testCookies)

	rr := httptest.NewRecorder()
	h.SendResetCode(rr, httptest.NewRequest(http.MethodGet, "/user/reset/verification-code/send?phone=13800138000", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, verificationdomain.PurposeReset, accounts.lastPurpose)
	env := decode(t, rr)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "null", string(env.Data))

	rr = httptest.NewRecorder()
	h.SendLoginCode(rr, httptest.NewRequest(http.MethodGet, "/user/login/verification-code/send", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	accounts.err = apperrors.ErrDeliveryFailed
	rr = httptest.NewRecorder()
	h.SendRegisterCode(rr, httptest.NewRequest(http.MethodGet, "/user/register/verification-code/send?phone=13800138000", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, apperrors.ErrDeliveryFailed.Message, decode(t, rr).Message)
}

func TestRegisterWithPassword_SetsCookieAndToken(t *testing.T) {
	accounts := &fakeAccounts{created: true}
	h := NewHandler(accounts, testCookies)

	body := `{"phone":"13800138000","password":"secret123","invitation_code":"inv12345"}`
	rr := httptest.NewRecorder()
	h.RegisterWithPassword(rr, httptest.NewRequest(http.MethodPost, "/user/register/password-way", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "inv12345", accounts.lastInput.InvitationCode)
	c := cookieNamed(rr, "auth_token")
	require.NotNil(t, c)
	assert.Equal(t, "tok-new", c.Value)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)

	env := decode(t, rr)
	assert.Equal(t, "user registered", env.Message)
	var data authResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "tok-new", data.Token)
	assert.Equal(t, "u-1", data.CurrentUser.UserID)
	assert.Nil(t, data.CurrentUser.LastLogin)
}

func TestRegisterWithCode_ExistingAccount(t *testing.T) {
	h := NewHandler(&fakeAccounts{}, testCookies)
	rr := httptest.NewRecorder()
	h.RegisterWithCode(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"13800138000","verification_code":"123456"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user already exists, logged in", decode(t, rr).Message)
}

func TestRegister_BadBody(t *testing.T) {
	h := NewHandler(&fakeAccounts{}, testCookies)
	rr := httptest.NewRecorder()
	h.RegisterWithPassword(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, cookieNamed(rr, "auth_token"))
}

func TestLogin_ErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrAccountNotFound, http.StatusNotFound},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperrors.ErrCodeExpired, http.StatusBadRequest},
		{apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := NewHandler(&fakeAccounts{err: tt.err}, testCookies)
		rr := httptest.NewRecorder()
		h.LoginWithPassword(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"13800138000","password":"x"}`)))
		assert.Equal(t, tt.want, rr.Code, tt.err.Error())
		assert.Equal(t, tt.want, decode(t, rr).Code)
		assert.Nil(t, cookieNamed(rr, "auth_token"))
	}
}

func TestLoginWithCode_AcceptsLegacyCodeField(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, testCookies)
	rr := httptest.NewRecorder()
	h.LoginWithCode(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"13800138000","code":"654321"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "654321", accounts.lastCode)
}

func TestResetPassword(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, testCookies)
	rr := httptest.NewRecorder()
	h.ResetPassword(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"13800138000","verification_code":"123456","new_password":"newpass1"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "123456", accounts.lastCode)
}

func TestLogout_AlwaysClearsCookie(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, testCookies)

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/user/logout", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, accounts.loggedOut)
	c := cookieNamed(rr, "auth_token")
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	req := httptest.NewRequest(http.MethodPost, "/user/logout", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "tok-1"})
	rr = httptest.NewRecorder()
	h.Logout(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"tok-1"}, accounts.loggedOut)
}

func TestInvalidateCookie(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewHandler(accounts, testCookies)

	rr := httptest.NewRecorder()
	h.InvalidateCookie(rr, authed(httptest.NewRequest(http.MethodPost, "/user/invalidate-cookie?target_token=other", nil), "u-1", "mine"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"other"}, accounts.invalidated)
	assert.Equal(t, "u-1", accounts.lastActor)
	assert.Nil(t, cookieNamed(rr, "auth_token"), "other token must not clear the caller's cookie")

	rr = httptest.NewRecorder()
	h.InvalidateCookie(rr, authed(httptest.NewRequest(http.MethodPost, "/user/invalidate-cookie", nil), "u-1", "mine"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "mine", accounts.invalidated[1])
	c := cookieNamed(rr, "auth_token")
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	accounts.err = apperrors.ErrMalformedCredential
	rr = httptest.NewRecorder()
	h.InvalidateCookie(rr, authed(httptest.NewRequest(http.MethodPost, "/user/invalidate-cookie?target_token=bad", nil), "u-1", "mine"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestInvalidateMultipleCookies(t *testing.T) {
	bad := "abcdefghijklmnopqrstuvwxyz"
	accounts := &fakeAccounts{batch: sessiondomain.BatchResult{
		Revoked: []string{"mine", "t2"},
		Failed:  []sessiondomain.BatchFailure{{Token: bad, Reason: "malformed credential"}},
	}}
	h := NewHandler(accounts, testCookies)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/invalidate-multiple-cookies", strings.NewReader(`["mine","t2","`+bad+`"]`))
	h.InvalidateMultipleCookies(rr, authed(req, "u-1", "mine"))
	require.Equal(t, http.StatusOK, rr.Code)

	env := decode(t, rr)
	assert.Equal(t, "invalidated 2 cookies, 1 tokens failed", env.Message)
	var data batchResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.InvalidatedCount)
	assert.Equal(t, 1, data.FailedCount)
	assert.Equal(t, []string{"abcdefghijklmnopqrst..."}, data.FailedTokens)
	assert.True(t, data.CurrentTokenInvalidated)
	assert.NotNil(t, cookieNamed(rr, "auth_token"))
}

func TestInvalidateMultipleCookies_BadBody(t *testing.T) {
	h := NewHandler(&fakeAccounts{}, testCookies)
	rr := httptest.NewRecorder()
	h.InvalidateMultipleCookies(rr, authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"not":"a list"}`)), "u-1", "mine"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfile(t *testing.T) {
	h := NewHandler(&fakeAccounts{}, testCookies)

	rr := httptest.NewRecorder()
	h.Profile(rr, httptest.NewRequest(http.MethodGet, "/user/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.Profile(rr, authed(httptest.NewRequest(http.MethodGet, "/user/profile", nil), "u-1", "mine"))
	require.Equal(t, http.StatusOK, rr.Code)
	var view ProfileView
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &view))
	assert.Equal(t, "13800138000", view.Phone)
	assert.Equal(t, int64(100), view.Points)
	assert.Equal(t, "2025-03-01T12:00:00Z", view.CreatedAt)
}
