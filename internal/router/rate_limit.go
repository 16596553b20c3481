package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中取限流主体（IP、邮箱、用户）
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 一个限流范围：固定窗口内最多 MaxRequests 次
type RateLimitRule struct {
	Scope         string
	WindowSeconds int
	MaxRequests   int
	// Message 超限提示，%d 为剩余等待秒数
	Message string
}

const (
	scopeLogin      = "login"
	scopeRegister   = "register"
	scopeAdminLogin = "admin_login"
	scopeCheckout   = "checkout"
	scopeCaptcha    = "captcha"

	defaultRateLimitMessage   = "Too many requests, please try again in %d seconds"
	loginRateLimitMessage     = "Too many login attempts, please try again in %d seconds"
	checkoutRateLimitMessage  = "Too many checkout attempts, please wait %d seconds before trying again"
	rateLimitUnavailableError = "Rate limiter is temporarily unavailable"
)

// 计数与 TTL 一次取回，首个请求设置窗口过期
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// storeRateLimits 按配置生成各限流范围
type storeRateLimits struct {
	Login      RateLimitRule
	Register   RateLimitRule
	AdminLogin RateLimitRule
	Checkout   RateLimitRule
	Captcha    RateLimitRule
}

func newStoreRateLimits(security config.SecurityConfig) storeRateLimits {
	login := security.LoginRateLimit
	checkout := security.CheckoutRateLimit
	return storeRateLimits{
		Login:      RateLimitRule{Scope: scopeLogin, WindowSeconds: login.WindowSeconds, MaxRequests: login.MaxAttempts, Message: loginRateLimitMessage},
		Register:   RateLimitRule{Scope: scopeRegister, WindowSeconds: login.WindowSeconds, MaxRequests: login.MaxAttempts},
		AdminLogin: RateLimitRule{Scope: scopeAdminLogin, WindowSeconds: login.WindowSeconds, MaxRequests: login.MaxAttempts, Message: loginRateLimitMessage},
		Checkout:   RateLimitRule{Scope: scopeCheckout, WindowSeconds: checkout.WindowSeconds, MaxRequests: checkout.MaxAttempts, Message: checkoutRateLimitMessage},
		Captcha:    RateLimitRule{Scope: scopeCaptcha, WindowSeconds: login.WindowSeconds, MaxRequests: login.MaxAttempts * 4},
	}
}

// RateLimiter Redis 固定窗口限流；未启用 Redis 时放行，Redis 出错时拒绝
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter 创建限流器，key 为 {prefix}:rate:{scope}:{subject}
func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ts"
	}
	return &RateLimiter{client: client, prefix: prefix}
}

// Limit 返回某个范围的限流中间件
func (l *RateLimiter) Limit(rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}
		key := fmt.Sprintf("%s:rate:%s:%s", l.prefix, rule.Scope, subject)

		values, err := rateLimitScript.Run(c.Request.Context(), l.client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err != nil || len(values) < 2 {
			logger.FromContext(c.Request.Context()).Warnw("rate_limit_unavailable", "scope", rule.Scope, "error", err)
			response.Error(c, response.CodeInternal, rateLimitUnavailableError)
			c.Abort()
			return
		}
		if values[0] > int64(rule.MaxRequests) {
			logger.FromContext(c.Request.Context()).Infow("rate_limit_exceeded", "scope", rule.Scope, "subject", subject)
			response.Error(c, response.CodeTooManyRequests, rule.exceededMessage(values[1]))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r RateLimitRule) exceededMessage(ttlSeconds int64) string {
	wait := int(ttlSeconds)
	if wait < 1 {
		wait = r.WindowSeconds
	}
	if wait < 1 {
		wait = 1
	}
	format := strings.TrimSpace(r.Message)
	if format == "" {
		format = defaultRateLimitMessage
	}
	return fmt.Sprintf(format, wait)
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUser 按已登录用户限流，需挂在用户鉴权之后
func KeyByUser(c *gin.Context) string {
	if userID := c.GetUint(userIDContextKey); userID != 0 {
		return "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 按请求体字段（如 email）加 IP 限流，读取后恢复请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
