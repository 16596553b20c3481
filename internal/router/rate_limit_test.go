package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/timestamp-store/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyByIPAndJSONFieldRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":" Asha@Example.com ","password":"secret"}`))
	c.Request.RemoteAddr = "10.0.0.8:5678"

	assert.Equal(t, "asha@example.com|10.0.0.8", KeyByIPAndJSONField("email")(c))
	body, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Asha@Example.com", "login handler still sees the original body")

	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":42}`))
	c.Request.RemoteAddr = "10.0.0.8:5678"
	assert.Equal(t, "10.0.0.8", KeyByIPAndJSONField("email")(c), "non-string email falls back to IP")
}

func TestKeyByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "10.0.0.9", KeyByUser(c))

	c.Set(userIDContextKey, uint(42))
	assert.Equal(t, "user:42", KeyByUser(c))
}

func TestStoreRateLimitsFromConfig(t *testing.T) {
	limits := newStoreRateLimits(config.SecurityConfig{
		LoginRateLimit:    config.LoginRateLimitConfig{WindowSeconds: 300, MaxAttempts: 5},
		CheckoutRateLimit: config.LoginRateLimitConfig{WindowSeconds: 60, MaxAttempts: 10},
	})
	assert.Equal(t, scopeLogin, limits.Login.Scope)
	assert.Equal(t, 5, limits.Register.MaxRequests)
	assert.Equal(t, scopeCheckout, limits.Checkout.Scope)
	assert.Equal(t, 10, limits.Checkout.MaxRequests)
	assert.Equal(t, 60, limits.Checkout.WindowSeconds)
	assert.Equal(t, 20, limits.Captcha.MaxRequests)

	assert.Equal(t, "Too many login attempts, please try again in 42 seconds", limits.Login.exceededMessage(42))
	assert.Equal(t, "Too many checkout attempts, please wait 60 seconds before trying again", limits.Checkout.exceededMessage(-1))
	assert.Equal(t, "Too many requests, please try again in 300 seconds", limits.Register.exceededMessage(0))
}

func TestRateLimiterPassesWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	rule := RateLimitRule{Scope: scopeCheckout, WindowSeconds: 60, MaxRequests: 1}
	r.POST("/orders", NewRateLimiter(nil, "ts").Limit(rule, KeyByUser), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "msg": "placed"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
		assert.Equal(t, "placed", decodeEnvelope(t, w).Msg)
	}
}

func TestRateLimiterRefusesWhenRedisFails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	reached := false
	r := gin.New()
	rule := RateLimitRule{Scope: scopeLogin, WindowSeconds: 60, MaxRequests: 5}
	r.POST("/login", NewRateLimiter(client, "ts").Limit(rule, KeyByIP), func(c *gin.Context) {
		reached = true
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	resp := decodeEnvelope(t, w)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, rateLimitUnavailableError, resp.Msg)
	assert.False(t, reached)
}
