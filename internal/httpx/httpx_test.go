package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/logger"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("a"), nil, mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}), RequestID())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "rid-1", seen)
	assert.Equal(t, "rid-1", rr.Header().Get(RequestIDHeader))
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		Recover(logger.Discard()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, http.StatusInternalServerError, env.Code)
	assert.Equal(t, "internal server error", env.Message)
}

func TestAccessLog_PassesThrough(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&buf, "info", true)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), AccessLog(log))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/x"`)
}

func TestWriteOK(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteOK(rr, "done", map[string]string{"k": "v"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rr)
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "done", env.Message)
	assert.Equal(t, map[string]any{"k": "v"}, env.Data)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperrors.ErrInvalidPhoneFormat, 400, "invalid phone number format"},
		{fmt.Errorf("wrap: %w", apperrors.ErrRevokedCredential), 401, "credential revoked"},
		{fmt.Errorf("%w: dial tcp refused", apperrors.ErrStoreUnavailable), 503, "store unavailable"},
		{errors.New("db exploded"), 500, "internal server error"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		WriteError(rr, tt.err)
		assert.Equal(t, tt.status, rr.Code)
		env := decodeEnvelope(t, rr)
		assert.Equal(t, tt.status, env.Code)
		assert.Equal(t, tt.message, env.Message)
		assert.Nil(t, env.Data)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Phone string `json:"phone"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"13800138000","extra":1}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "13800138000", dst.Phone)

	for _, body := range []string{"", "{", "[1,2]"} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(req, &dst)
		assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err), "body %q", body)
	}
}
