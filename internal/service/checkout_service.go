package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	checkoutSourceCart   = "cart"
	checkoutSourceBuyNow = "buy_now"
)

// CheckoutService 结算汇总服务
type CheckoutService struct {
	carts       *CartService
	variantRepo repository.VariantRepository
	coupons     *CouponService
	wallets     *WalletService
	policy      CheckoutPolicy
	now         func() time.Time
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(carts *CartService, variantRepo repository.VariantRepository, coupons *CouponService, wallets *WalletService, policy CheckoutPolicy) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		variantRepo: variantRepo,
		coupons:     coupons,
		wallets:     wallets,
		policy:      policy,
		now:         time.Now,
	}
}

// SummaryOptions 结算汇总选项
type SummaryOptions struct {
	BuyNow bool
}

// CheckoutSummary 结算汇总
type CheckoutSummary struct {
	Source               string             `json:"source"`
	CartID               uint               `json:"cart_id,omitempty"`
	Lines                []CartLine         `json:"lines"`
	ItemCount            int                `json:"item_count"`
	Subtotal             decimal.Decimal    `json:"subtotal"`
	OfferDiscount        decimal.Decimal    `json:"offer_discount"`
	ShippingCharge       decimal.Decimal    `json:"shipping_charge"`
	CouponCode           string             `json:"coupon_code,omitempty"`
	CouponDiscount       decimal.Decimal    `json:"coupon_discount"`
	CouponError          string             `json:"coupon_error,omitempty"`
	Coupon               *CouponApplyResult `json:"-"`
	TotalAmount          decimal.Decimal    `json:"total_amount"`
	UseWallet            bool               `json:"use_wallet"`
	WalletBalance        decimal.Decimal    `json:"wallet_balance"`
	WalletUsed           decimal.Decimal    `json:"wallet_used"`
	RemainingAmount      decimal.Decimal    `json:"remaining_amount"`
	NeedsExternalPayment bool               `json:"needs_external_payment"`
	CODAvailable         bool               `json:"cod_available"`
	CODLimit             decimal.Decimal    `json:"cod_limit"`
	Currency             string             `json:"currency"`
}

// BuyNow 是否为立即购买结算
func (s *CheckoutSummary) BuyNow() bool {
	return s.Source == checkoutSourceBuyNow
}

// Fingerprint 结算内容摘要，用于确认在线支付前后结算未发生变化
func (s *CheckoutSummary) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|", s.Source)
	for _, line := range s.Lines {
		fmt.Fprintf(&b, "%d:%d:%s;", line.VariantID, line.Quantity, line.Quote.FinalPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "|%s|%s|%s|%s|%s",
		s.CouponCode,
		s.CouponDiscount.StringFixed(2),
		s.ShippingCharge.StringFixed(2),
		s.TotalAmount.StringFixed(2),
		s.WalletUsed.StringFixed(2),
	)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// BuildSummary 汇总购物车或立即购买草稿，按当前活动计价并应用优惠券与钱包
func (s *CheckoutService) BuildSummary(ctx context.Context, userID uint, session *CheckoutSession, opts SummaryOptions) (*CheckoutSummary, error) {
	today := s.now()
	summary := &CheckoutSummary{
		Source:   checkoutSourceCart,
		Currency: s.policy.Currency,
		CODLimit: s.policy.CODLimit,
	}

	if opts.BuyNow {
		draft, err := session.BuyNow(ctx)
		if err != nil {
			return nil, err
		}
		if draft == nil {
			return nil, ErrBuyNowDraftNotFound
		}
		variant, err := s.variantRepo.GetByID(draft.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil || variant.Product == nil {
			return nil, ErrVariantNotFound
		}
		summary.Source = checkoutSourceBuyNow
		summary.Lines = []CartLine{s.carts.priceLine(variant, variant.Product, draft.Quantity, today)}
	} else {
		view, err := s.carts.GetCart(userID)
		if err != nil {
			return nil, err
		}
		summary.CartID = view.CartID
		summary.Lines = view.Lines
	}
	if len(summary.Lines) == 0 {
		return nil, ErrCartEmpty
	}

	summary.Subtotal, summary.OfferDiscount, summary.ItemCount = sumLines(summary.Lines)
	summary.ShippingCharge = s.policy.ShippingFor(summary.Subtotal)
	summary.CouponDiscount = decimal.Zero

	code, err := session.PendingCoupon(ctx)
	if err != nil {
		return nil, err
	}
	if code != "" {
		result, err := s.coupons.ValidateAndApply(code, userID, summary.Subtotal, today)
		switch {
		case err == nil:
			summary.Coupon = result
			summary.CouponCode = result.Code
			summary.CouponDiscount = result.Discount
		case KindOf(err) != "":
			logger.FromContext(ctx).Infow("checkout_coupon_dropped", "user_id", userID, "code", code, "reason", err.Error())
			summary.CouponError = err.Error()
			if clearErr := session.ClearPendingCoupon(ctx); clearErr != nil {
				return nil, clearErr
			}
		default:
			return nil, err
		}
	}

	summary.TotalAmount = decimal.Max(summary.Subtotal.Sub(summary.CouponDiscount).Add(summary.ShippingCharge), decimal.Zero)

	useWallet, err := session.UseWallet(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := s.wallets.Balance(userID)
	if err != nil {
		return nil, err
	}
	summary.UseWallet = useWallet
	summary.WalletBalance = balance
	summary.WalletUsed = decimal.Zero
	if useWallet && balance.IsPositive() {
		summary.WalletUsed = decimal.Min(balance, summary.TotalAmount)
	}
	summary.RemainingAmount = summary.TotalAmount.Sub(summary.WalletUsed)
	summary.NeedsExternalPayment = summary.RemainingAmount.IsPositive()
	summary.CODAvailable = !summary.RemainingAmount.GreaterThan(s.policy.CODLimit)
	return summary, nil
}

// CheckCOD 货到付款金额上限校验（按扣除钱包后的应付金额）
func (s *CheckoutService) CheckCOD(summary *CheckoutSummary) error {
	if summary.RemainingAmount.GreaterThan(s.policy.CODLimit) {
		return ErrCODNotAvailable.WithMessagef("Cash on Delivery is not available for orders above %s", formatRupees(s.policy.CODLimit))
	}
	return nil
}

// ApplyCoupon 校验优惠码并写入会话
func (s *CheckoutService) ApplyCoupon(ctx context.Context, userID uint, session *CheckoutSession, code string, opts SummaryOptions) (*CheckoutSummary, error) {
	if err := session.ClearPendingCoupon(ctx); err != nil {
		return nil, err
	}
	summary, err := s.BuildSummary(ctx, userID, session, opts)
	if err != nil {
		return nil, err
	}
	result, err := s.coupons.ValidateAndApply(code, userID, summary.Subtotal, s.now())
	if err != nil {
		return nil, err
	}
	if err := session.SetPendingCoupon(ctx, result.Code); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Infow("checkout_coupon_applied", "user_id", userID, "code", result.Code, "discount", result.Discount.StringFixed(2))
	return s.BuildSummary(ctx, userID, session, opts)
}

// RemoveCoupon 移除会话中的优惠码
func (s *CheckoutService) RemoveCoupon(ctx context.Context, userID uint, session *CheckoutSession, opts SummaryOptions) (*CheckoutSummary, error) {
	if err := session.ClearPendingCoupon(ctx); err != nil {
		return nil, err
	}
	return s.BuildSummary(ctx, userID, session, opts)
}

// SetUseWallet 切换是否使用钱包余额
func (s *CheckoutService) SetUseWallet(ctx context.Context, userID uint, session *CheckoutSession, enabled bool, opts SummaryOptions) (*CheckoutSummary, error) {
	if err := session.SetUseWallet(ctx, enabled); err != nil {
		return nil, err
	}
	return s.BuildSummary(ctx, userID, session, opts)
}

// StartBuyNow 校验并保存立即购买草稿
func (s *CheckoutService) StartBuyNow(ctx context.Context, userID uint, session *CheckoutSession, variantID uint, quantity int) (*CheckoutSummary, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	variant, err := s.carts.loadPurchasableVariant(variantID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.checkQuantity(variant, quantity); err != nil {
		return nil, err
	}
	if err := session.SetBuyNow(ctx, BuyNowDraft{VariantID: variant.ID, Quantity: quantity}); err != nil {
		return nil, err
	}
	return s.BuildSummary(ctx, userID, session, SummaryOptions{BuyNow: true})
}

// CancelBuyNow 放弃立即购买草稿
func (s *CheckoutService) CancelBuyNow(ctx context.Context, session *CheckoutSession) error {
	return session.ClearBuyNow(ctx)
}

// ListCoupons 结算页可用优惠券
func (s *CheckoutService) ListCoupons(ctx context.Context, userID uint, session *CheckoutSession, opts SummaryOptions) ([]AvailableCoupon, error) {
	summary, err := s.BuildSummary(ctx, userID, session, opts)
	if err != nil {
		return nil, err
	}
	return s.coupons.ListAvailable(userID, summary.Subtotal, s.now())
}
