package service

import (
	"errors"
	"strings"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
	}
}

// CouponApplyResult 优惠券校验与计算结果
type CouponApplyResult struct {
	Coupon     *models.Coupon  `json:"-"`
	Code       string          `json:"code"`
	CartTotal  decimal.Decimal `json:"cart_total"`
	Discount   decimal.Decimal `json:"discount"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// CouponDisplay 订单详情展示的优惠券信息
type CouponDisplay struct {
	Code                    string          `json:"code"`
	DiscountAmount          decimal.Decimal `json:"discount_amount"`
	CartTotalBeforeDiscount decimal.Decimal `json:"cart_total_before_discount"`
}

// AvailableCoupon 结算页可选优惠券
type AvailableCoupon struct {
	Coupon   models.Coupon   `json:"coupon"`
	Eligible bool            `json:"eligible"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
}

// CreateCouponInput 后台创建优惠券输入
type CreateCouponInput struct {
	Code               string
	Description        string
	DiscountType       string
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	MinPurchaseAmount  decimal.Decimal
	StartDate          time.Time
	EndDate            time.Time
	UsageLimit         *int
	OneTimeUse         bool
	IsActive           bool
}

// NormalizeCouponCode 去空白并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CalculateCouponDiscount 计算优惠额与优惠后金额，优惠额不超过合计
func CalculateCouponDiscount(coupon *models.Coupon, total decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	total = total.Round(2)
	if coupon == nil || !total.IsPositive() {
		return decimal.Zero, decimal.Max(total, decimal.Zero)
	}
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case constants.CouponTypePercentage:
		discount = total.Mul(coupon.DiscountPercentage.Decimal).Div(hundred).Round(2)
	default:
		discount = coupon.DiscountAmount.Decimal.Round(2)
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(total) {
		discount = total
	}
	return discount, total.Sub(discount)
}

// checkEligibility 按顺序校验状态、日期、总次数、用户次数、门槛
func (s *CouponService) checkEligibility(coupon *models.Coupon, userID uint, cartTotal decimal.Decimal, today time.Time) error {
	day := models.DateOnly(today)
	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if day.Before(models.DateOnly(coupon.StartDate)) {
		return ErrCouponNotStarted.WithMessagef("This coupon is valid from %s", models.DateOnly(coupon.StartDate).Format("02 Jan 2006"))
	}
	if day.After(models.DateOnly(coupon.EndDate)) {
		return ErrCouponExpired
	}
	if coupon.UsageLimitReached() {
		return ErrCouponUsageLimitReached
	}
	if coupon.OneTimeUse && userID != 0 {
		used, err := s.usageRepo.ExistsForUser(coupon.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return ErrCouponAlreadyUsed
		}
	}
	if cartTotal.LessThan(coupon.MinPurchaseAmount.Decimal) {
		return ErrCouponBelowMinimum.WithMessagef("Minimum purchase of %s required", formatRupees(coupon.MinPurchaseAmount.Decimal))
	}
	return nil
}

// ValidateAndApply 校验优惠码并计算优惠，失败时返回首个不满足的条件
func (s *CouponService) ValidateAndApply(code string, userID uint, cartTotal decimal.Decimal, today time.Time) (*CouponApplyResult, error) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return nil, ErrCouponCodeRequired
	}
	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponInvalidCode
	}
	if err := s.checkEligibility(coupon, userID, cartTotal, today); err != nil {
		return nil, err
	}
	discount, final := CalculateCouponDiscount(coupon, cartTotal)
	return &CouponApplyResult{
		Coupon:     coupon,
		Code:       coupon.Code,
		CartTotal:  cartTotal.Round(2),
		Discount:   discount,
		FinalTotal: final,
	}, nil
}

// RecordUsageInTx 在下单事务内锁定优惠券、递增使用次数并写入使用记录
func (s *CouponService) RecordUsageInTx(tx *gorm.DB, couponID, userID, orderID uint, discount, totalBeforeDiscount decimal.Decimal) (*models.CouponUsage, error) {
	couponRepo := s.couponRepo.WithTx(tx)
	usageRepo := s.usageRepo.WithTx(tx)

	coupon, err := couponRepo.GetByIDForUpdate(couponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponInvalidCode
	}
	if coupon.UsageLimitReached() {
		return nil, ErrCouponUsageLimitReached
	}
	if coupon.OneTimeUse {
		used, err := usageRepo.ExistsForUser(coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrCouponAlreadyUsed
		}
	}
	affected, err := couponRepo.IncrementTimesUsed(coupon.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCouponUsageLimitReached
	}

	usage := &models.CouponUsage{
		CouponID:                coupon.ID,
		UserID:                  userID,
		OrderID:                 orderID,
		DiscountAmount:          models.NewMoneyFromDecimal(discount),
		CartTotalBeforeDiscount: models.NewMoneyFromDecimal(totalBeforeDiscount),
	}
	if err := usageRepo.Create(usage); err != nil {
		return nil, normalizePersistenceError(err)
	}
	usage.Coupon = coupon
	logger.Infow("coupon_usage_recorded",
		"coupon_id", coupon.ID,
		"order_id", orderID,
		"user_id", userID,
		"discount", usage.DiscountAmount.String(),
	)
	return usage, nil
}

// DiscountForDisplay 订单详情使用的优惠券信息，未使用优惠券返回 nil
func (s *CouponService) DiscountForDisplay(orderID uint) (*CouponDisplay, error) {
	return displayFromUsage(s.usageRepo.GetByOrderID(orderID))
}

// DiscountForDisplayInTx 事务内读取订单用券信息
func (s *CouponService) DiscountForDisplayInTx(tx *gorm.DB, orderID uint) (*CouponDisplay, error) {
	return displayFromUsage(s.usageRepo.WithTx(tx).GetByOrderID(orderID))
}

func displayFromUsage(usage *models.CouponUsage, err error) (*CouponDisplay, error) {
	if err != nil || usage == nil {
		return nil, err
	}
	display := &CouponDisplay{
		DiscountAmount:          usage.DiscountAmount.Decimal,
		CartTotalBeforeDiscount: usage.CartTotalBeforeDiscount.Decimal,
	}
	if usage.Coupon != nil {
		display.Code = usage.Coupon.Code
	}
	return display, nil
}

// ListAvailable 列出当前可用的优惠券，并标注对该用户与金额是否满足条件
func (s *CouponService) ListAvailable(userID uint, total decimal.Decimal, today time.Time) ([]AvailableCoupon, error) {
	coupons, err := s.couponRepo.ListRedeemable(models.DateOnly(today))
	if err != nil {
		return nil, err
	}
	result := make([]AvailableCoupon, 0, len(coupons))
	for i := range coupons {
		coupon := coupons[i]
		item := AvailableCoupon{Coupon: coupon}
		if err := s.checkEligibility(&coupon, userID, total, today); err != nil {
			if KindOf(err) == "" {
				return nil, err
			}
			if errors.Is(err, ErrCouponAlreadyUsed) {
				continue
			}
			item.Reason = err.Error()
		} else {
			item.Eligible = true
			item.Discount, _ = CalculateCouponDiscount(&coupon, total)
		}
		result = append(result, item)
	}
	return result, nil
}

// ListCoupons 后台优惠券列表
func (s *CouponService) ListCoupons(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}

// CreateCoupon 后台创建优惠券
func (s *CouponService) CreateCoupon(input CreateCouponInput) (*models.Coupon, error) {
	code := NormalizeCouponCode(input.Code)
	if code == "" || len(code) > 20 {
		return nil, ErrCouponDefinition.WithMessage("Coupon code must be 1 to 20 characters")
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	coupon := &models.Coupon{
		Code:              code,
		Description:       strings.TrimSpace(input.Description),
		DiscountType:      discountType,
		DiscountAmount:    models.ZeroMoney(),
		MinPurchaseAmount: models.NewMoneyFromDecimal(input.MinPurchaseAmount),
		StartDate:         models.DateOnly(input.StartDate),
		EndDate:           models.DateOnly(input.EndDate),
		UsageLimit:        input.UsageLimit,
		OneTimeUse:        input.OneTimeUse,
		IsActive:          input.IsActive,
	}
	switch discountType {
	case constants.CouponTypeFixed:
		if !input.DiscountAmount.IsPositive() {
			return nil, ErrCouponDefinition.WithMessage("Fixed coupons need a positive discount amount")
		}
		coupon.DiscountAmount = models.NewMoneyFromDecimal(input.DiscountAmount)
		coupon.DiscountPercentage = models.ZeroMoney()
	case constants.CouponTypePercentage:
		if !input.DiscountPercentage.IsPositive() || input.DiscountPercentage.GreaterThan(hundred) {
			return nil, ErrCouponDefinition.WithMessage("Percentage must be between 0 and 100")
		}
		coupon.DiscountPercentage = models.NewMoneyFromDecimal(input.DiscountPercentage)
	default:
		return nil, ErrCouponDefinition.WithMessage("Discount type must be fixed or percentage")
	}
	if input.MinPurchaseAmount.IsNegative() {
		return nil, ErrCouponDefinition.WithMessage("Minimum purchase must not be negative")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() || coupon.EndDate.Before(coupon.StartDate) {
		return nil, ErrCouponDefinition.WithMessage("End date must not be before start date")
	}
	if input.UsageLimit != nil && *input.UsageLimit < 0 {
		return nil, ErrCouponDefinition.WithMessage("Usage limit must not be negative")
	}

	existing, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCouponCodeTaken
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		if errors.Is(normalizePersistenceError(err), ErrConflictRetry) {
			return nil, ErrCouponCodeTaken
		}
		return nil, err
	}
	logger.Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code, "type", coupon.DiscountType)
	return coupon, nil
}
