package provider

import (
	"time"

	"github.com/timestamp-store/internal/authz"
	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/payment/razorpay"
	"github.com/timestamp-store/internal/queue"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config       *config.Config
	QueueClient  *queue.Client
	SessionStore service.SessionStore

	CheckoutPolicy service.CheckoutPolicy
	OrderPolicy    service.OrderPolicy
	CheckoutTTL    time.Duration

	// Repositories
	AdminRepo       repository.AdminRepository
	UserRepo        repository.UserRepository
	ProductRepo     repository.ProductRepository
	VariantRepo     repository.VariantRepository
	OfferRepo       repository.OfferRepository
	CartRepo        repository.CartRepository
	CouponRepo      repository.CouponRepository
	CouponUsageRepo repository.CouponUsageRepository
	OrderRepo       repository.OrderRepository
	PaymentRepo     repository.PaymentRepository
	WalletRepo      repository.WalletRepository
	ReferralRepo    repository.ReferralRepository
	ReportRepo      repository.ReportRepository

	// Services
	AuthzService    *authz.Service
	AuthService     *service.AuthService
	UserAuthService *service.UserAuthService
	OfferService    *service.OfferService
	CouponService   *service.CouponService
	WalletService   *service.WalletService
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
	ReferralService *service.ReferralService
	ReportService   *service.ReportService
	CaptchaService  *service.CaptchaService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:       cfg,
		QueueClient:  queueClient,
		SessionStore: cache.NewSessionStore(),
		CheckoutTTL:  time.Duration(cfg.Session.CheckoutTTLMinutes) * time.Minute,
	}
	c.loadPolicies()

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// loadPolicies 配置转换为服务层规则，非法配置回落默认值
func (c *Container) loadPolicies() {
	checkout := c.Config.Checkout
	policy, err := service.ParseCheckoutPolicy(checkout.Currency, checkout.FreeShippingThreshold, checkout.ShippingFee, checkout.CODLimit, checkout.MaxQuantityPerProduct)
	if err != nil {
		logger.Errorw("provider_invalid_checkout_config", "error", err)
		policy = service.DefaultCheckoutPolicy()
	}
	c.CheckoutPolicy = policy

	order := service.DefaultOrderPolicy()
	if c.Config.Order.IDPrefix != "" {
		order.IDPrefix = c.Config.Order.IDPrefix
	}
	if c.Config.Order.ReturnWindowDays > 0 {
		order.ReturnWindow = time.Duration(c.Config.Order.ReturnWindowDays) * 24 * time.Hour
	}
	if c.Config.Order.ReturnReasonMinLength > 0 {
		order.ReturnReasonMinLength = c.Config.Order.ReturnReasonMinLength
	}
	if c.Config.Order.HistoryNotesMaxLength > 0 {
		order.HistoryNotesMaxLength = c.Config.Order.HistoryNotesMaxLength
	}
	c.OrderPolicy = order
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.VariantRepo = repository.NewVariantRepository(db)
	c.OfferRepo = repository.NewOfferRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.ReportRepo = repository.NewReportRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	rewardAmount, err := decimal.NewFromString(c.Config.Referral.RewardAmount)
	if err != nil || rewardAmount.IsNegative() {
		logger.Warnw("provider_invalid_referral_reward", "value", c.Config.Referral.RewardAmount)
		rewardAmount = decimal.NewFromInt(500)
	}

	c.OfferService = service.NewOfferService(c.OfferRepo, c.ProductRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.VariantRepo, c.OfferService, c.CheckoutPolicy)
	c.CheckoutService = service.NewCheckoutService(c.CartService, c.VariantRepo, c.CouponService, c.WalletService, c.CheckoutPolicy)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.UserRepo, c.WalletService, rewardAmount)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.WalletService, c.ReferralService, c.QueueClient, c.SessionStore)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.VariantRepo,
		c.CartRepo,
		c.UserRepo,
		c.PaymentRepo,
		c.CheckoutService,
		c.CouponService,
		c.WalletService,
		c.buildGateway(),
		c.CheckoutPolicy,
		c.OrderPolicy,
	)
	c.ReportService = service.NewReportService(c.ReportRepo, c.OrderRepo, c.VariantRepo)
	c.CaptchaService = c.buildCaptchaService()
}

// buildCaptchaService 启用 Redis 时答案存 Redis，多实例可共用
func (c *Container) buildCaptchaService() *service.CaptchaService {
	cfg := c.Config.Captcha
	if !cache.Enabled() {
		return service.NewCaptchaService(cfg, nil)
	}
	ttl := time.Duration(cfg.Image.ExpireSeconds) * time.Second
	return service.NewCaptchaService(cfg, cache.NewRedisCaptchaStore(cache.Client(), c.Config.Redis.Prefix, ttl))
}

// buildGateway 未启用或配置不完整时返回 nil，在线支付接口将提示网关不可用
func (c *Container) buildGateway() service.PaymentGateway {
	rp := c.Config.Razorpay
	if !rp.Enabled {
		return nil
	}
	cfg := &razorpay.Config{
		KeyID:          rp.KeyID,
		KeySecret:      rp.KeySecret,
		APIBaseURL:     rp.APIBaseURL,
		TimeoutSeconds: rp.TimeoutSeconds,
	}
	cfg.Normalize()
	if err := razorpay.ValidateConfig(cfg); err != nil {
		logger.Errorw("provider_invalid_razorpay_config", "error", err)
		return nil
	}
	return service.NewRazorpayGateway(cfg)
}

// Session 当前用户的结算会话
func (c *Container) Session(userID uint) *service.CheckoutSession {
	return service.NewCheckoutSession(c.SessionStore, userID, c.CheckoutTTL)
}

// Close 释放队列与缓存连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
