package router

import (
	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/config"
	adminhandlers "github.com/timestamp-store/internal/http/handlers/admin"
	publichandlers "github.com/timestamp-store/internal/http/handlers/public"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	limiter := NewRateLimiter(cache.Client(), cfg.Redis.Prefix)
	limits := newStoreRateLimits(cfg.Security)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		if err := models.Ping(); err != nil {
			response.Error(ctx, response.CodeInternal, "Database is unavailable")
			return
		}
		response.Success(ctx, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 账号
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", limiter.Limit(limits.Register, KeyByIPAndJSONField("email")), publicHandler.Register)
			auth.POST("/register/verify", limiter.Limit(limits.Register, KeyByIP), publicHandler.VerifyRegistration)
			auth.POST("/login", limiter.Limit(limits.Login, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 验证码
		apiV1.GET("/captcha/config", publicHandler.GetCaptchaConfig)
		apiV1.GET("/captcha/image", limiter.Limit(limits.Captcha, KeyByIP), publicHandler.GetImageCaptcha)

		// 登录用户接口
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(c.UserAuthService))
		{
			user.GET("/referrals", publicHandler.GetReferrals)

			user.GET("/addresses", publicHandler.ListAddresses)
			user.POST("/addresses", publicHandler.CreateAddress)

			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.PATCH("/cart/items/:id", publicHandler.UpdateCartItem)
			user.DELETE("/cart/items/:id", publicHandler.RemoveCartItem)

			user.GET("/checkout", publicHandler.GetCheckoutSummary)
			user.GET("/checkout/coupons", publicHandler.ListCheckoutCoupons)
			user.DELETE("/checkout/coupon", publicHandler.RemoveCoupon)
			user.POST("/checkout/wallet", publicHandler.ToggleWallet)
			user.POST("/checkout/buy-now", publicHandler.StartBuyNow)
			user.DELETE("/checkout/buy-now", publicHandler.CancelBuyNow)

			checkoutLimit := limiter.Limit(limits.Checkout, KeyByUser)
			user.POST("/checkout/coupon", checkoutLimit, publicHandler.ApplyCoupon)
			user.POST("/orders", checkoutLimit, publicHandler.PlaceOrder)
			user.POST("/orders/online", checkoutLimit, publicHandler.StartOnlinePayment)
			user.POST("/orders/online/confirm", publicHandler.ConfirmOnlinePayment)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:order_no", publicHandler.GetOrder)
			user.GET("/orders/:order_no/refund-breakdown", publicHandler.GetRefundBreakdown)
			user.POST("/orders/:order_no/cancel", publicHandler.CancelOrder)
			user.POST("/order-items/:id/cancel", publicHandler.CancelOrderItem)
			user.POST("/order-items/:id/return", publicHandler.RequestReturn)

			user.GET("/wallet", publicHandler.GetWallet)
			user.GET("/wallet/transactions", publicHandler.ListWalletTransactions)
		}

		// 后台接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", limiter.Limit(limits.AdminLogin, KeyByIP), adminHandler.Login)

			// 仅需登录的接口
			self := admin.Group("")
			self.Use(JWTAuthMiddleware(c.AuthService))
			{
				self.PUT("/password", adminHandler.ChangePassword)
				self.GET("/authz/me", adminHandler.GetAuthzMe)
			}

			authorized := admin.Group("")
			authorized.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:order_no", adminHandler.GetOrder)
				authorized.PATCH("/orders/:order_no/status", adminHandler.UpdateOrderStatus)
				authorized.POST("/order-items/:id/return/approve", adminHandler.ApproveReturn)
				authorized.POST("/order-items/:id/return/reject", adminHandler.RejectReturn)

				authorized.GET("/offers", adminHandler.ListOffers)
				authorized.GET("/offers/statistics", adminHandler.GetOfferStatistics)
				authorized.POST("/offers", adminHandler.CreateOffer)
				authorized.POST("/offers/expire", adminHandler.ExpireOffers)
				authorized.GET("/offers/:id", adminHandler.GetOffer)
				authorized.PUT("/offers/:id", adminHandler.UpdateOffer)
				authorized.PATCH("/offers/:id/status", adminHandler.SetOfferStatus)

				authorized.GET("/coupons", adminHandler.ListCoupons)
				authorized.POST("/coupons", adminHandler.CreateCoupon)

				authorized.GET("/reports/sales", adminHandler.GetSalesReport)
				authorized.GET("/reports/stock", adminHandler.GetStockReport)
				authorized.GET("/reports/orders", adminHandler.GetOrderStatistics)

				authorized.GET("/wallets/:user_id/ledger", adminHandler.VerifyWalletLedger)
				authorized.GET("/wallets/:user_id/transactions", adminHandler.ListWalletTransactions)

				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAdminRoles)
			}
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "Resource not found")
	})

	return r
}
