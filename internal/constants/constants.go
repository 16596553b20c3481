package constants

// 订单状态常量
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusReturned       = "returned"
)

// 订单项状态常量（在订单状态之外增加退货申请中）
const (
	OrderItemStatusPending         = OrderStatusPending
	OrderItemStatusConfirmed       = OrderStatusConfirmed
	OrderItemStatusProcessing      = OrderStatusProcessing
	OrderItemStatusShipped         = OrderStatusShipped
	OrderItemStatusOutForDelivery  = OrderStatusOutForDelivery
	OrderItemStatusDelivered       = OrderStatusDelivered
	OrderItemStatusCancelled       = OrderStatusCancelled
	OrderItemStatusReturnRequested = "return_requested"
	OrderItemStatusReturned        = OrderStatusReturned
)

// 支付状态常量
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

// 支付方式常量
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodOnline       = "online"
	PaymentMethodWallet       = "wallet"
	PaymentMethodWalletOnline = "wallet_online"
	PaymentMethodWalletCOD    = "wallet_cod"
)

// 网关支付记录状态常量
const (
	GatewayPaymentStatusCreated  = "created"
	GatewayPaymentStatusCaptured = "captured"
	GatewayPaymentStatusFailed   = "failed"
)

// 优惠活动状态与类型常量
const (
	OfferStatusActive   = "active"
	OfferStatusInactive = "inactive"
	OfferStatusExpired  = "expired"

	OfferTypeProduct  = "product"
	OfferTypeCategory = "category"
	OfferTypeNone     = "none"
)

// 优惠券折扣类型常量
const (
	CouponTypeFixed      = "fixed"
	CouponTypePercentage = "percentage"
)

// 钱包交易类型常量
const (
	WalletTxnTypeCredit = "credit"
	WalletTxnTypeDebit  = "debit"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 购物车状态常量
const (
	CartStatusActive = "active"
)

// 订单状态变更操作者
const (
	ActorSystem = "system"
	ActorUser   = "user"
	ActorAdmin  = "admin"
)

// 验证码提供方与场景
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"

	CaptchaSceneLogin      = "login"
	CaptchaSceneRegister   = "register"
	CaptchaSceneAdminLogin = "admin_login"
)

// 队列与任务常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskOfferExpire          = "offer:expire"
	TaskAccountCleanup       = "account:cleanup_unverified"
	TaskReferralCreditReward = "referral:credit_reward"
)

// CancellableOrderStatuses 允许用户取消的订单/订单项状态
var CancellableOrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
}

// SalesCountedOrderStatuses 计入销售统计的订单状态
var SalesCountedOrderStatuses = []string{
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// RefundableItemStatuses 已退款（需计入退款金额）的订单项状态
var RefundableItemStatuses = []string{
	OrderItemStatusCancelled,
	OrderItemStatusReturned,
}

// StatusPropagationSkipped 订单状态批量变更时不跟随的订单项状态
var StatusPropagationSkipped = []string{
	OrderItemStatusCancelled,
	OrderItemStatusReturned,
	OrderItemStatusReturnRequested,
}

// ActiveItemStatuses 计入订单金额的订单项状态（未取消、未退货）
var ActiveItemStatuses = []string{
	OrderItemStatusPending,
	OrderItemStatusConfirmed,
	OrderItemStatusProcessing,
	OrderItemStatusShipped,
	OrderItemStatusOutForDelivery,
	OrderItemStatusDelivered,
	OrderItemStatusReturnRequested,
}

// PrepaidPaymentMethods 下单时已实际收款的支付方式
var PrepaidPaymentMethods = []string{
	PaymentMethodOnline,
	PaymentMethodWallet,
	PaymentMethodWalletOnline,
}

// InStatusSet 判断状态是否在集合内
func InStatusSet(status string, set []string) bool {
	for _, item := range set {
		if item == status {
			return true
		}
	}
	return false
}

// OrderStatuses 全部订单状态（展示顺序）
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}
