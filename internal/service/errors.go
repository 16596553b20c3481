package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 需要调用方重试的 PostgreSQL 错误码：死锁、序列化失败
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

// ErrorKind 业务错误分类
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindBusinessRule ErrorKind = "business_rule"
	KindExternal     ErrorKind = "external"
	KindConflict     ErrorKind = "conflict"
)

// ServiceError 带分类与稳定错误码的业务错误
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details []string

	base *ServiceError
}

func newServiceError(kind ErrorKind, code, message string) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message}
}

// Error 实现 error
func (e *ServiceError) Error() string {
	return e.Message
}

// Is 派生错误与其哨兵错误视为相同
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e == t || (e.base != nil && e.base == t)
}

// WithMessage 派生一个携带具体信息的错误，errors.Is 仍匹配原哨兵
func (e *ServiceError) WithMessage(message string) *ServiceError {
	return &ServiceError{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		base:    e.root(),
	}
}

// WithMessagef 格式化版本的 WithMessage
func (e *ServiceError) WithMessagef(format string, args ...interface{}) *ServiceError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails 附加逐条问题描述（用于结算前校验）
func (e *ServiceError) WithDetails(details []string) *ServiceError {
	derived := e.WithMessage(e.Message)
	derived.Details = append([]string(nil), details...)
	return derived
}

func (e *ServiceError) root() *ServiceError {
	if e.base != nil {
		return e.base
	}
	return e
}

// KindOf 返回错误分类，非业务错误返回空
func KindOf(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// normalizePersistenceError 唯一约束冲突统一转换为可重试错误
func normalizePersistenceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflictRetry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure) {
		return ErrConflictRetry
	}
	return err
}

// 校验类错误
var (
	ErrInvalidQuantity       = newServiceError(KindValidation, "invalid_quantity", "Quantity must be at least 1")
	ErrCartEmpty             = newServiceError(KindValidation, "cart_empty", "Your cart is empty")
	ErrCartValidationFailed  = newServiceError(KindValidation, "cart_validation_failed", "Some items in your cart need attention")
	ErrReturnReasonTooShort  = newServiceError(KindValidation, "return_reason_too_short", "Please provide a detailed reason for the return")
	ErrRejectReasonRequired  = newServiceError(KindValidation, "reject_reason_required", "Please provide a rejection reason")
	ErrInvalidPaymentMethod  = newServiceError(KindValidation, "invalid_payment_method", "Invalid payment method")
	ErrInvalidOrderStatus    = newServiceError(KindValidation, "invalid_order_status", "Invalid order status")
	ErrOfferInvalid          = newServiceError(KindValidation, "offer_invalid", "Invalid offer")
	ErrCouponDefinition      = newServiceError(KindValidation, "coupon_definition_invalid", "Invalid coupon definition")
	ErrCouponCodeRequired    = newServiceError(KindValidation, "coupon_code_required", "Please enter a coupon code")
	ErrWalletInvalidAmount   = newServiceError(KindValidation, "wallet_invalid_amount", "Amount must be greater than zero")
	ErrInvalidEmail          = newServiceError(KindValidation, "invalid_email", "Please enter a valid email address")
	ErrWeakPassword          = newServiceError(KindValidation, "weak_password", "Password must be at least 8 characters")
	ErrInvalidOTP            = newServiceError(KindValidation, "invalid_otp", "Invalid OTP")
	ErrOTPExpired            = newServiceError(KindValidation, "otp_expired", "OTP has expired, please register again")
	ErrInvalidCredentials    = newServiceError(KindValidation, "invalid_credentials", "Invalid email or password")
	ErrInvalidToken          = newServiceError(KindValidation, "invalid_token", "Invalid or expired token")
	ErrInvalidReferralCode   = newServiceError(KindValidation, "invalid_referral_code", "Invalid referral code")
	ErrInvalidReportRange    = newServiceError(KindValidation, "invalid_report_range", "Invalid report date range")
	ErrPaymentDetailsMissing = newServiceError(KindValidation, "payment_details_missing", "Missing payment details")
	ErrCaptchaRequired       = newServiceError(KindValidation, "captcha_required", "Please complete the captcha")
	ErrCaptchaInvalid        = newServiceError(KindValidation, "captcha_invalid", "Captcha is incorrect or has expired")
)

// 资源不存在
var (
	ErrProductNotFound         = newServiceError(KindNotFound, "product_not_found", "Product not found")
	ErrCategoryNotFound        = newServiceError(KindNotFound, "category_not_found", "Category not found")
	ErrVariantNotFound         = newServiceError(KindNotFound, "variant_not_found", "Product variant not found")
	ErrCartItemNotFound        = newServiceError(KindNotFound, "cart_item_not_found", "Cart item not found")
	ErrOrderNotFound           = newServiceError(KindNotFound, "order_not_found", "Order not found")
	ErrOrderItemNotFound       = newServiceError(KindNotFound, "order_item_not_found", "Order item not found")
	ErrOfferNotFound           = newServiceError(KindNotFound, "offer_not_found", "Offer not found")
	ErrCouponNotFound          = newServiceError(KindNotFound, "coupon_not_found", "Coupon not found")
	ErrUserNotFound            = newServiceError(KindNotFound, "user_not_found", "User not found")
	ErrAddressNotFound         = newServiceError(KindNotFound, "address_not_found", "Please select a delivery address")
	ErrWalletNotFound          = newServiceError(KindNotFound, "wallet_not_found", "Wallet not found")
	ErrBuyNowDraftNotFound     = newServiceError(KindNotFound, "buy_now_not_found", "No buy now item found")
	ErrPendingCheckoutNotFound = newServiceError(KindNotFound, "pending_checkout_not_found", "No pending payment found for this session")
	ErrRegistrationNotFound    = newServiceError(KindNotFound, "registration_not_found", "Registration session expired, please register again")
)

// 业务规则
var (
	ErrProductUnavailable        = newServiceError(KindBusinessRule, "product_unavailable", "This product is currently unavailable")
	ErrOutOfStock                = newServiceError(KindBusinessRule, "out_of_stock", "This product is out of stock")
	ErrInsufficientStock         = newServiceError(KindBusinessRule, "insufficient_stock", "Requested quantity is not available")
	ErrQuantityLimitExceeded     = newServiceError(KindBusinessRule, "quantity_limit_exceeded", "Maximum quantity per product reached")
	ErrCouponInvalidCode         = newServiceError(KindBusinessRule, "coupon_invalid_code", "Invalid coupon code")
	ErrCouponInactive            = newServiceError(KindBusinessRule, "coupon_inactive", "This coupon is inactive")
	ErrCouponNotStarted          = newServiceError(KindBusinessRule, "coupon_not_started", "This coupon is not yet valid")
	ErrCouponExpired             = newServiceError(KindBusinessRule, "coupon_expired", "This coupon has expired")
	ErrCouponUsageLimitReached   = newServiceError(KindBusinessRule, "coupon_usage_limit_reached", "This coupon has reached its usage limit")
	ErrCouponAlreadyUsed         = newServiceError(KindBusinessRule, "coupon_already_used", "You have already used this coupon")
	ErrCouponBelowMinimum        = newServiceError(KindBusinessRule, "coupon_below_minimum", "Cart total is below the coupon minimum")
	ErrCODNotAvailable           = newServiceError(KindBusinessRule, "cod_not_available", "Cash on Delivery is not available for this order")
	ErrWalletInsufficientBalance = newServiceError(KindBusinessRule, "wallet_insufficient_balance", "Insufficient wallet balance")
	ErrWalletNotSelected         = newServiceError(KindBusinessRule, "wallet_not_selected", "Enable wallet payment to pay with your wallet")
	ErrExternalPaymentRequired   = newServiceError(KindBusinessRule, "external_payment_required", "Wallet balance does not cover this order")
	ErrNoExternalPaymentNeeded   = newServiceError(KindBusinessRule, "no_external_payment_needed", "Order is fully covered by your wallet")
	ErrInvalidTransition         = newServiceError(KindBusinessRule, "invalid_transition", "Invalid status transition")
	ErrItemNotCancellable        = newServiceError(KindBusinessRule, "item_not_cancellable", "This item cannot be cancelled")
	ErrOrderNotCancellable       = newServiceError(KindBusinessRule, "order_not_cancellable", "This order cannot be cancelled")
	ErrReturnNotAllowed          = newServiceError(KindBusinessRule, "return_not_allowed", "Only delivered items can be returned")
	ErrReturnWindowExpired       = newServiceError(KindBusinessRule, "return_window_expired", "Return window has expired")
	ErrNoReturnRequest           = newServiceError(KindBusinessRule, "no_return_request", "No pending return request for this item")
	ErrCheckoutChanged           = newServiceError(KindBusinessRule, "checkout_changed", "Your cart changed after payment was started, please try again")
	ErrAccountDisabled           = newServiceError(KindBusinessRule, "account_disabled", "This account is disabled")
	ErrAccountNotVerified        = newServiceError(KindBusinessRule, "account_not_verified", "Please verify your email before logging in")
	ErrSelfReferral              = newServiceError(KindBusinessRule, "self_referral", "You cannot refer yourself")
	ErrCaptchaDisabled           = newServiceError(KindBusinessRule, "captcha_disabled", "Captcha is not enabled")
)

// 外部依赖
var (
	ErrPaymentGatewayUnavailable = newServiceError(KindExternal, "payment_gateway_unavailable", "Payment gateway is unavailable, please try again")
	ErrPaymentSignatureInvalid   = newServiceError(KindExternal, "payment_signature_invalid", "Payment verification failed")
	ErrPaymentAmountMismatch     = newServiceError(KindExternal, "payment_amount_mismatch", "Paid amount does not match the order amount")
	ErrPaymentNotCaptured        = newServiceError(KindExternal, "payment_not_captured", "Payment has not been completed")
	ErrQueueUnavailable          = newServiceError(KindExternal, "queue_unavailable", "Background queue is unavailable")
)

// 并发冲突
var (
	ErrConflictRetry   = newServiceError(KindConflict, "conflict_retry", "Something changed while processing your request, please try again")
	ErrEmailRegistered = newServiceError(KindConflict, "email_registered", "An account with this email already exists")
	ErrCouponCodeTaken = newServiceError(KindConflict, "coupon_code_taken", "A coupon with this code already exists")
)
