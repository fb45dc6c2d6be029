package sessioncookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"account-service/backend/internal/config"
)

func testPolicy() Policy {
	return PolicyFromConfig(&config.EnvConfig{
		CookieName:     "auth_token",
		CookieMaxAge:   2592000,
		CookieHTTPOnly: true,
		CookieSameSite: "strict",
		CookieDomain:   "example.com",
		CookiePath:     "/",
	})
}

func TestPolicyFromConfig_Defaults(t *testing.T) {
	p := PolicyFromConfig(&config.EnvConfig{})
	if p.Name != "auth_token" || p.Path != "/" {
		t.Fatalf("defaults = %+v", p)
	}
	if p.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite = %v, want lax", p.SameSite)
	}
}

func TestReadTrimsAndRejectsEmpty(t *testing.T) {
	p := testPolicy()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "  tok  "})
	if got, ok := p.Read(req); !ok || got != "tok" {
		t.Fatalf("Read() = %q, %v", got, ok)
	}

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	empty.AddCookie(&http.Cookie{Name: "auth_token", Value: "   "})
	if _, ok := p.Read(empty); ok {
		t.Fatal("blank cookie should be ignored")
	}
	if _, ok := p.Read(nil); ok {
		t.Fatal("nil request should be ignored")
	}
}

func TestTokenPrefersCookieOverBearer(t *testing.T) {
	p := testPolicy()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	if got, ok := p.Token(req); !ok || got != "header-token" {
		t.Fatalf("bearer only: Token() = %q, %v", got, ok)
	}
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	if got, _ := p.Token(req); got != "cookie-token" {
		t.Fatalf("cookie + bearer: Token() = %q, want cookie-token", got)
	}
}

func TestTokenRejectsOtherSchemes(t *testing.T) {
	p := testPolicy()
	for _, h := range []string{"", "Basic abc", "Bearer", "Bearer   ", "bearer x"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		got, ok := p.Token(req)
		if h == "bearer x" {
			if !ok || got != "x" {
				t.Errorf("%q: Token() = %q, %v", h, got, ok)
			}
			continue
		}
		if ok {
			t.Errorf("%q: Token() = %q, want none", h, got)
		}
	}
}

func TestWriteAndClear(t *testing.T) {
	p := testPolicy()
	rr := httptest.NewRecorder()
	p.Write(rr, "tok")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "auth_token" || c.Value != "tok" || c.MaxAge != 2592000 || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.Domain != "example.com" || c.Path != "/" {
		t.Fatalf("written cookie = %+v", c)
	}

	rr = httptest.NewRecorder()
	p.Clear(rr)
	c = rr.Result().Cookies()[0]
	if c.Name != "auth_token" || c.Value != "" || c.MaxAge >= 0 || c.Domain != "example.com" || c.Path != "/" {
		t.Fatalf("cleared cookie = %+v", c)
	}
}
