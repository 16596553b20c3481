package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdminAuth struct {
	state *cache.AdminAuthState
	err   error
}

func (f fakeAdminAuth) Authenticate(_ context.Context, _ string) (*cache.AdminAuthState, error) {
	return f.state, f.err
}

type fakeUserAuth struct {
	claims *service.UserJWTClaims
	err    error
}

func (f fakeUserAuth) Authenticate(_ context.Context, _ string) (*service.UserJWTClaims, error) {
	return f.claims, f.err
}

type envelope struct {
	StatusCode int    `json:"status_code"`
	Msg        string `json:"msg"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestResolveAllowedOrigin(t *testing.T) {
	assert.Equal(t, "*", resolveAllowedOrigin("https://example.com", []string{"*"}, false))
	assert.Equal(t, "https://example.com", resolveAllowedOrigin("https://example.com", []string{"*"}, true))
	assert.Equal(t, "https://a.example.com", resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false))
	assert.Equal(t, "", resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false))
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-123", resp["request_id"])

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w2.Header().Get(requestIDHeader))
}

func TestJWTAuthMiddlewareWithoutAuthenticator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}

func TestJWTAuthMiddlewareSetsAdminContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(fakeAdminAuth{state: &cache.AdminAuthState{AdminID: 7, IsSuper: true}}))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": c.GetUint("admin_id"), "is_super": c.GetBool(adminIsSuperContextKey)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"admin_id":7,"is_super":true}`, w.Body.String())
}

func TestUserJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		auth       UserAuthenticator
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing header", auth: fakeUserAuth{}, wantStatus: 401, wantMsg: "Authorization header is required"},
		{name: "wrong scheme", auth: fakeUserAuth{}, header: "Basic abc", wantStatus: 401, wantMsg: "Authorization header must use the Bearer scheme"},
		{name: "invalid token", auth: fakeUserAuth{err: service.ErrInvalidToken}, header: "Bearer bad", wantStatus: 401, wantMsg: "Invalid or expired token"},
		{name: "disabled account", auth: fakeUserAuth{err: service.ErrAccountDisabled}, header: "Bearer ok", wantStatus: 401, wantMsg: "Your account is not active"},
		{name: "unexpected error", auth: fakeUserAuth{err: errors.New("boom")}, header: "Bearer ok", wantStatus: 401, wantMsg: "Invalid or expired token"},
		{name: "valid token", auth: fakeUserAuth{claims: &service.UserJWTClaims{UserID: 3, Email: "a@example.com"}}, header: "Bearer ok", wantStatus: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(UserJWTAuthMiddleware(tc.auth))
			r.GET("/me", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status_code": 0, "msg": "ok", "user_id": c.GetUint("user_id")})
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			resp := decodeEnvelope(t, w)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, resp.Msg)
			}
		})
	}
}

func TestAdminRBACMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AdminRBACMiddleware(nil))
	r.GET("/admin/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}
