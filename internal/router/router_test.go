package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/provider"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mojocn/base64Captcha"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "watchlover1"

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type apiFailure struct {
	ErrorCode string   `json:"error_code"`
	Details   []string `json:"details"`
	RequestID string   `json:"request_id"`
}

// storeAPI 完整路由 + sqlite，Redis 与队列关闭
type storeAPI struct {
	t      *testing.T
	db     *gorm.DB
	c      *provider.Container
	engine *gin.Engine
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.JWT = config.JWTConfig{SecretKey: "test-admin-secret", ExpireHours: 1}
	cfg.UserJWT = config.JWTConfig{SecretKey: "test-user-secret", ExpireHours: 1}
	cfg.Checkout = config.CheckoutConfig{
		Currency:              "INR",
		FreeShippingThreshold: "1000",
		ShippingFee:           "50",
		CODLimit:              "10000",
		MaxQuantityPerProduct: 5,
	}
	cfg.Order = config.OrderConfig{IDPrefix: "TS", ReturnWindowDays: 7, ReturnReasonMinLength: 10, HistoryNotesMaxLength: 100}
	cfg.Session = config.SessionConfig{CheckoutTTLMinutes: 30, OTPExpireMinutes: 10, OTPLength: 6}
	cfg.Referral.RewardAmount = "500"
	cfg.Captcha.Provider = constants.CaptchaProviderNone
	return cfg
}

func newStoreAPI(t *testing.T, cfg *config.Config, tweak func(*provider.Container)) *storeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	previous := models.DB
	models.DB = db
	t.Cleanup(func() { models.DB = previous })

	c := provider.NewContainer(cfg)
	t.Cleanup(c.Close)
	if tweak != nil {
		tweak(c)
	}
	return &storeAPI{t: t, db: db, c: c, engine: SetupRouter(cfg, c)}
}

func (a *storeAPI) call(method, path, token string, body interface{}) apiResponse {
	a.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(a.t, http.StatusOK, w.Code, "envelope responses always use HTTP 200")

	var resp apiResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (a *storeAPI) ok(method, path, token string, body interface{}, dest interface{}) {
	a.t.Helper()
	resp := a.call(method, path, token, body)
	require.Equal(a.t, response.CodeOK, resp.StatusCode, "%s %s: %s", method, path, resp.Msg)
	if dest != nil {
		require.NoError(a.t, json.Unmarshal(resp.Data, dest))
	}
}

func failureOf(t *testing.T, resp apiResponse) apiFailure {
	t.Helper()
	var failure apiFailure
	require.NoError(t, json.Unmarshal(resp.Data, &failure), string(resp.Data))
	return failure
}

// registerUser 走完注册与 OTP 验证，返回用户 Token
func (a *storeAPI) registerUser(email string) (uint, string) {
	a.t.Helper()
	var started struct {
		Token string `json:"token"`
		OTP   string `json:"otp"`
	}
	a.ok(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": testPassword, "first_name": "Asha",
	}, &started)
	require.NotEmpty(a.t, started.OTP, "debug mode returns the OTP")

	var verified struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	a.ok(http.MethodPost, "/api/v1/auth/register/verify", "", gin.H{"token": started.Token, "otp": started.OTP}, &verified)
	require.NotEmpty(a.t, verified.Token)
	return verified.User.ID, verified.Token
}

func (a *storeAPI) createAddress(token string) uint {
	a.t.Helper()
	var address models.Address
	a.ok(http.MethodPost, "/api/v1/addresses", token, gin.H{
		"full_name":      "Asha Rao",
		"mobile":         "9876543210",
		"street_address": "12 MG Road",
		"city":           "Bengaluru",
		"state":          "Karnataka",
		"postal_code":    "560001",
	}, &address)
	require.NotZero(a.t, address.ID)
	return address.ID
}

func (a *storeAPI) createVariant(name, price string, stock int) *models.ProductVariant {
	a.t.Helper()
	product := &models.Product{Name: name, Slug: fmt.Sprintf("%s-%d", name, time.Now().UnixNano()), BasePrice: models.MustMoney(price), IsListed: true}
	require.NoError(a.t, a.db.Create(product).Error)
	variant := &models.ProductVariant{ProductID: product.ID, Colour: "Black", Price: models.MustMoney(price), Stock: stock, IsListed: true}
	require.NoError(a.t, a.db.Create(variant).Error)
	return variant
}

func (a *storeAPI) createAdmin(username string, super bool) *models.Admin {
	a.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(a.t, err)
	admin := &models.Admin{Username: username, PasswordHash: string(hash), IsSuper: super}
	require.NoError(a.t, a.db.Create(admin).Error)
	return admin
}

func (a *storeAPI) adminLogin(username string) string {
	a.t.Helper()
	var login struct {
		Token string `json:"token"`
	}
	a.ok(http.MethodPost, "/api/v1/admin/login", "", gin.H{"username": username, "password": testPassword}, &login)
	require.NotEmpty(a.t, login.Token)
	return login.Token
}

func (a *storeAPI) stockOf(variantID uint) int {
	a.t.Helper()
	var variant models.ProductVariant
	require.NoError(a.t, a.db.First(&variant, variantID).Error)
	return variant.Stock
}

func TestWalletOrderLifecycleOverHTTP(t *testing.T) {
	api := newStoreAPI(t, testConfig(), nil)
	dial := api.createVariant("Diver", "1500", 4)
	strap := api.createVariant("Strap", "500", 4)

	userID, token := api.registerUser("asha@example.com")
	addressID := api.createAddress(token)
	_, err := api.c.WalletService.Credit(service.WalletChangeInput{UserID: userID, Amount: decimal.NewFromInt(5000), Description: "Top up"})
	require.NoError(t, err)

	api.ok(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": dial.ID, "quantity": 1}, nil)
	api.ok(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": strap.ID, "quantity": 1}, nil)
	api.ok(http.MethodPost, "/api/v1/checkout/wallet", token, gin.H{"use_wallet": true}, nil)

	var order models.Order
	api.ok(http.MethodPost, "/api/v1/orders", token, gin.H{"address_id": addressID, "payment_method": constants.PaymentMethodWallet}, &order)
	assert.Equal(t, constants.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2000)), order.TotalAmount.String())
	assert.Equal(t, 3, api.stockOf(dial.ID))
	assert.Equal(t, 3, api.stockOf(strap.ID))

	var cart service.CartView
	api.ok(http.MethodGet, "/api/v1/cart", token, nil, &cart)
	assert.Empty(t, cart.Lines, "placing the order clears the cart")

	var detail service.OrderDetail
	api.ok(http.MethodGet, "/api/v1/orders/"+order.OrderNo, token, nil, &detail)
	require.NotNil(t, detail.Order)
	require.Len(t, detail.Order.Items, 2)
	var strapItem models.OrderItem
	for _, item := range detail.Order.Items {
		if item.VariantID == strap.ID {
			strapItem = item
		}
	}
	require.NotZero(t, strapItem.ID)

	var cancelled models.Order
	api.ok(http.MethodPost, fmt.Sprintf("/api/v1/order-items/%d/cancel", strapItem.ID), token, gin.H{"reason": "Ordered the wrong strap"}, &cancelled)
	assert.True(t, cancelled.TotalAmount.Equal(decimal.NewFromInt(1500)), cancelled.TotalAmount.String())
	assert.True(t, cancelled.RefundedAmount.Equal(decimal.NewFromInt(500)), cancelled.RefundedAmount.String())
	assert.Equal(t, 4, api.stockOf(strap.ID))

	var wallet models.Wallet
	api.ok(http.MethodGet, "/api/v1/wallet", token, nil, &wallet)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(3500)), wallet.Balance.String())

	resp := api.call(http.MethodPost, fmt.Sprintf("/api/v1/order-items/%d/cancel", strapItem.ID), token, gin.H{})
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "item_not_cancellable", failureOf(t, resp).ErrorCode)
}

func TestPublicErrorResponses(t *testing.T) {
	api := newStoreAPI(t, testConfig(), nil)
	variant := api.createVariant("Field", "800", 1)
	_, token := api.registerUser("ravi@example.com")
	addressID := api.createAddress(token)

	resp := api.call(http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, 401, resp.StatusCode)

	resp = api.call(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": variant.ID})
	assert.Equal(t, 400, resp.StatusCode)
	failure := failureOf(t, resp)
	assert.Equal(t, "invalid_parameters", failure.ErrorCode)
	assert.Contains(t, failure.Details, "quantity is required")
	assert.NotEmpty(t, failure.RequestID)

	resp = api.call(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": variant.ID, "quantity": 2})
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "insufficient_stock", failureOf(t, resp).ErrorCode)

	resp = api.call(http.MethodGet, "/api/v1/orders/TS000000000000", token, nil)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "order_not_found", failureOf(t, resp).ErrorCode)

	resp = api.call(http.MethodPost, "/api/v1/orders", token, gin.H{"address_id": addressID, "payment_method": constants.PaymentMethodCOD})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "cart_empty", failureOf(t, resp).ErrorCode)

	api.ok(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": variant.ID, "quantity": 1}, nil)
	api.ok(http.MethodPost, "/api/v1/checkout/wallet", token, gin.H{"use_wallet": true}, nil)
	resp = api.call(http.MethodPost, "/api/v1/orders", token, gin.H{"address_id": addressID, "payment_method": constants.PaymentMethodWallet})
	assert.Equal(t, 402, resp.StatusCode, "an empty wallet cannot pay for the order")
	assert.Equal(t, 1, api.stockOf(variant.ID))
}

func TestAdminOrderStatusOverHTTP(t *testing.T) {
	api := newStoreAPI(t, testConfig(), nil)
	variant := api.createVariant("Pilot", "1200", 2)
	_, token := api.registerUser("meera@example.com")
	addressID := api.createAddress(token)
	api.ok(http.MethodPost, "/api/v1/cart/items", token, gin.H{"variant_id": variant.ID, "quantity": 1}, nil)
	var order models.Order
	api.ok(http.MethodPost, "/api/v1/orders", token, gin.H{"address_id": addressID, "payment_method": constants.PaymentMethodCOD}, &order)

	api.createAdmin("root", true)
	auditor := api.createAdmin("auditor", false)
	require.NoError(t, api.c.AuthzService.SetAdminRoles(auditor.ID, []string{"readonly_auditor"}))
	rootToken := api.adminLogin("root")
	auditorToken := api.adminLogin("auditor")

	resp := api.call(http.MethodPost, "/api/v1/admin/login", "", gin.H{"username": "root", "password": "not-the-password"})
	assert.Equal(t, 401, resp.StatusCode)

	statusPath := "/api/v1/admin/orders/" + order.OrderNo + "/status"
	resp = api.call(http.MethodPatch, statusPath, auditorToken, gin.H{"status": constants.OrderStatusConfirmed})
	assert.Equal(t, 403, resp.StatusCode, "read-only role cannot change orders")
	api.ok(http.MethodGet, "/api/v1/admin/orders/"+order.OrderNo, auditorToken, nil, nil)

	var updated models.Order
	api.ok(http.MethodPatch, statusPath, rootToken, gin.H{"status": constants.OrderStatusConfirmed, "notes": "Payment on delivery"}, &updated)
	assert.Equal(t, constants.OrderStatusConfirmed, updated.Status)

	resp = api.call(http.MethodPatch, statusPath, rootToken, gin.H{"status": constants.OrderStatusDelivered})
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "invalid_transition", failureOf(t, resp).ErrorCode)

	resp = api.call(http.MethodPatch, statusPath, rootToken, gin.H{"status": "lost"})
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "invalid_order_status", failureOf(t, resp).ErrorCode)

	resp = api.call(http.MethodGet, "/api/v1/admin/orders", token, nil)
	assert.Equal(t, 401, resp.StatusCode, "user tokens are not admin tokens")
}

func TestLoginRequiresCaptchaWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Captcha = config.CaptchaConfig{
		Provider: constants.CaptchaProviderImage,
		Scenes:   config.CaptchaSceneConfig{Login: true},
	}
	store := base64Captcha.NewMemoryStore(100, time.Minute)
	api := newStoreAPI(t, cfg, func(c *provider.Container) {
		c.CaptchaService = service.NewCaptchaService(cfg.Captcha, store)
	})
	api.registerUser("kiran@example.com")

	var setting service.CaptchaPublicSetting
	api.ok(http.MethodGet, "/api/v1/captcha/config", "", nil, &setting)
	assert.Equal(t, constants.CaptchaProviderImage, setting.Provider)
	assert.True(t, setting.Scenes[constants.CaptchaSceneLogin])
	assert.False(t, setting.Scenes[constants.CaptchaSceneRegister])

	login := gin.H{"email": "kiran@example.com", "password": testPassword}
	resp := api.call(http.MethodPost, "/api/v1/auth/login", "", login)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "captcha_required", failureOf(t, resp).ErrorCode)

	var challenge service.CaptchaImageChallenge
	api.ok(http.MethodGet, "/api/v1/captcha/image", "", nil, &challenge)
	require.NotEmpty(t, challenge.CaptchaID)

	login["captcha_payload"] = gin.H{"captcha_id": challenge.CaptchaID, "captcha_code": "nope"}
	resp = api.call(http.MethodPost, "/api/v1/auth/login", "", login)
	assert.Equal(t, "captcha_invalid", failureOf(t, resp).ErrorCode)

	api.ok(http.MethodGet, "/api/v1/captcha/image", "", nil, &challenge)
	answer := store.Get(challenge.CaptchaID, false)
	require.NotEmpty(t, answer)
	login["captcha_payload"] = gin.H{"captcha_id": challenge.CaptchaID, "captcha_code": answer}
	var session struct {
		Token string `json:"token"`
	}
	api.ok(http.MethodPost, "/api/v1/auth/login", "", login, &session)
	assert.NotEmpty(t, session.Token)
}

func TestCaptchaImageUnavailableWhenDisabled(t *testing.T) {
	api := newStoreAPI(t, testConfig(), nil)

	resp := api.call(http.MethodGet, "/api/v1/captcha/image", "", nil)
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "captcha_disabled", failureOf(t, resp).ErrorCode)

	var setting service.CaptchaPublicSetting
	api.ok(http.MethodGet, "/api/v1/captcha/config", "", nil, &setting)
	assert.Equal(t, constants.CaptchaProviderNone, setting.Provider)
}
