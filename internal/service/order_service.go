package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo      repository.OrderRepository
	variantRepo    repository.VariantRepository
	cartRepo       repository.CartRepository
	userRepo       repository.UserRepository
	paymentRepo    repository.PaymentRepository
	checkout       *CheckoutService
	coupons        *CouponService
	wallets        *WalletService
	gateway        PaymentGateway
	checkoutPolicy CheckoutPolicy
	orderPolicy    OrderPolicy
	now            func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	variantRepo repository.VariantRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	paymentRepo repository.PaymentRepository,
	checkout *CheckoutService,
	coupons *CouponService,
	wallets *WalletService,
	gateway PaymentGateway,
	checkoutPolicy CheckoutPolicy,
	orderPolicy OrderPolicy,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		variantRepo:    variantRepo,
		cartRepo:       cartRepo,
		userRepo:       userRepo,
		paymentRepo:    paymentRepo,
		checkout:       checkout,
		coupons:        coupons,
		wallets:        wallets,
		gateway:        gateway,
		checkoutPolicy: checkoutPolicy,
		orderPolicy:    orderPolicy,
		now:            time.Now,
	}
}

// PlaceOrderInput 下单输入
type PlaceOrderInput struct {
	UserID        uint
	Session       *CheckoutSession
	AddressID     uint
	PaymentMethod string
	BuyNow        bool
	Notes         string
}

// OnlineCheckout 已创建的网关订单，供前端拉起支付
type OnlineCheckout struct {
	KeyID          string           `json:"key_id"`
	GatewayOrderID string           `json:"gateway_order_id"`
	Receipt        string           `json:"receipt"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	PaymentMethod  string           `json:"payment_method"`
	Summary        *CheckoutSummary `json:"summary"`
}

// ConfirmOnlineInput 在线支付确认输入
type ConfirmOnlineInput struct {
	UserID         uint
	Session        *CheckoutSession
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

// paymentPlan 订单应付金额在钱包/在线/货到付款之间的拆分
type paymentPlan struct {
	Method        string
	PaymentStatus string
	WalletPaid    decimal.Decimal
	OnlinePaid    decimal.Decimal
	CODAmount     decimal.Decimal
}

// confirmedPayment 已校验的网关支付
type confirmedPayment struct {
	Provider       string
	GatewayOrderID string
	PaymentID      string
	Receipt        string
	Amount         decimal.Decimal
	Currency       string
	Status         string
	Raw            map[string]interface{}
}

// PlaceOrder 货到付款或钱包全额支付下单
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == constants.PaymentMethodOnline || method == constants.PaymentMethodWalletOnline {
		return nil, ErrExternalPaymentRequired.WithMessage("Online payments must be completed through the payment gateway")
	}
	address, summary, err := s.prepareCheckout(ctx, input.UserID, input.Session, input.AddressID, input.BuyNow)
	if err != nil {
		return nil, err
	}
	plan, err := s.resolvePaymentPlan(summary, method)
	if err != nil {
		return nil, err
	}
	return s.placeOrder(ctx, input, address, summary, plan, nil)
}

// StartOnlineCheckout 为扣除钱包后的应付金额创建网关订单并记录待确认草稿
func (s *OrderService) StartOnlineCheckout(ctx context.Context, input PlaceOrderInput) (*OnlineCheckout, error) {
	if s.gateway == nil {
		return nil, ErrPaymentGatewayUnavailable
	}
	_, summary, err := s.prepareCheckout(ctx, input.UserID, input.Session, input.AddressID, input.BuyNow)
	if err != nil {
		return nil, err
	}
	plan, err := s.resolvePaymentPlan(summary, constants.PaymentMethodOnline)
	if err != nil {
		return nil, err
	}

	receipt := newReceipt(s.now())
	gatewayOrder, err := s.gateway.CreateOrder(ctx, plan.OnlinePaid, summary.Currency, receipt)
	if err != nil {
		logger.FromContext(ctx).Warnw("online_checkout_gateway_failed", "user_id", input.UserID, "error", err)
		return nil, err
	}
	pending := PendingOnlineCheckout{
		GatewayOrderID: gatewayOrder.ID,
		Receipt:        receipt,
		OnlineAmount:   plan.OnlinePaid.StringFixed(2),
		Currency:       summary.Currency,
		PaymentMethod:  plan.Method,
		AddressID:      input.AddressID,
		OrderNotes:     strings.TrimSpace(input.Notes),
		BuyNow:         summary.BuyNow(),
		Fingerprint:    summary.Fingerprint(),
	}
	if err := input.Session.SetPendingOnline(ctx, pending); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Infow("online_checkout_started",
		"user_id", input.UserID,
		"gateway_order_id", gatewayOrder.ID,
		"amount", pending.OnlineAmount,
		"payment_method", plan.Method,
	)
	return &OnlineCheckout{
		KeyID:          s.gateway.KeyID(),
		GatewayOrderID: gatewayOrder.ID,
		Receipt:        receipt,
		Amount:         plan.OnlinePaid,
		Currency:       summary.Currency,
		PaymentMethod:  plan.Method,
		Summary:        summary,
	}, nil
}

// ConfirmOnlinePayment 校验签名与实收金额后下单，重复确认返回已创建的订单
func (s *OrderService) ConfirmOnlinePayment(ctx context.Context, input ConfirmOnlineInput) (*models.Order, error) {
	gatewayOrderID := strings.TrimSpace(input.GatewayOrderID)
	paymentID := strings.TrimSpace(input.PaymentID)
	signature := strings.TrimSpace(input.Signature)
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return nil, ErrPaymentDetailsMissing
	}
	if s.gateway == nil {
		return nil, ErrPaymentGatewayUnavailable
	}
	log := logger.FromContext(ctx)

	existing, err := s.paymentRepo.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != input.UserID {
			return nil, ErrPendingCheckoutNotFound
		}
		order, err := s.orderRepo.GetByID(existing.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, ErrOrderNotFound
		}
		return order, nil
	}

	pending, err := input.Session.PendingOnline(ctx)
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.GatewayOrderID != gatewayOrderID {
		return nil, ErrPendingCheckoutNotFound
	}
	if err := s.gateway.VerifySignature(gatewayOrderID, paymentID, signature); err != nil {
		log.Warnw("online_payment_signature_rejected", "user_id", input.UserID, "gateway_order_id", gatewayOrderID)
		return nil, err
	}
	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.OrderID != "" && payment.OrderID != gatewayOrderID {
		return nil, ErrPaymentSignatureInvalid.WithMessage("Payment does not belong to this checkout")
	}
	if !payment.Captured && payment.Status != constants.GatewayPaymentStatusCaptured {
		return nil, ErrPaymentNotCaptured
	}
	expected, err := decimal.NewFromString(pending.OnlineAmount)
	if err != nil {
		return nil, ErrPendingCheckoutNotFound
	}
	if !payment.Amount.Equal(expected) {
		log.Errorw("online_payment_amount_mismatch",
			"user_id", input.UserID,
			"gateway_order_id", gatewayOrderID,
			"expected", expected.StringFixed(2),
			"captured", payment.Amount.StringFixed(2),
		)
		return nil, ErrPaymentAmountMismatch
	}

	address, summary, err := s.prepareCheckout(ctx, input.UserID, input.Session, pending.AddressID, pending.BuyNow)
	if err != nil {
		return nil, err
	}
	if summary.Fingerprint() != pending.Fingerprint {
		log.Errorw("online_checkout_changed_after_payment",
			"user_id", input.UserID,
			"gateway_order_id", gatewayOrderID,
			"payment_id", paymentID,
		)
		return nil, ErrCheckoutChanged
	}
	plan, err := s.resolvePaymentPlan(summary, pending.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if !plan.OnlinePaid.Equal(expected) {
		return nil, ErrPaymentAmountMismatch
	}

	return s.placeOrder(ctx, PlaceOrderInput{
		UserID:        input.UserID,
		Session:       input.Session,
		AddressID:     pending.AddressID,
		PaymentMethod: plan.Method,
		BuyNow:        pending.BuyNow,
		Notes:         pending.OrderNotes,
	}, address, summary, plan, &confirmedPayment{
		Provider:       s.gateway.Provider(),
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
		Receipt:        pending.Receipt,
		Amount:         payment.Amount,
		Currency:       pending.Currency,
		Status:         constants.GatewayPaymentStatusCaptured,
		Raw:            payment.Raw,
	})
}

// prepareCheckout 校验收货地址并生成可下单的结算汇总
func (s *OrderService) prepareCheckout(ctx context.Context, userID uint, session *CheckoutSession, addressID uint, buyNow bool) (*models.Address, *CheckoutSummary, error) {
	if userID == 0 {
		return nil, nil, ErrUserNotFound
	}
	address, err := s.userRepo.GetAddressForUser(userID, addressID)
	if err != nil {
		return nil, nil, err
	}
	if address == nil {
		return nil, nil, ErrAddressNotFound
	}
	summary, err := s.checkout.BuildSummary(ctx, userID, session, SummaryOptions{BuyNow: buyNow})
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkout.carts.ValidateForCheckout(&CartView{Lines: summary.Lines}); err != nil {
		return nil, nil, err
	}
	return address, summary, nil
}

// resolvePaymentPlan 按支付方式拆分应付金额
func (s *OrderService) resolvePaymentPlan(summary *CheckoutSummary, method string) (paymentPlan, error) {
	walletUsed := summary.WalletUsed
	remaining := summary.RemainingAmount
	walletCovers := paymentPlan{
		Method:        constants.PaymentMethodWallet,
		PaymentStatus: constants.PaymentStatusCompleted,
		WalletPaid:    walletUsed,
		OnlinePaid:    decimal.Zero,
		CODAmount:     decimal.Zero,
	}

	switch strings.ToLower(strings.TrimSpace(method)) {
	case constants.PaymentMethodCOD, constants.PaymentMethodWalletCOD:
		if !remaining.IsPositive() && walletUsed.IsPositive() {
			return walletCovers, nil
		}
		if err := s.checkout.CheckCOD(summary); err != nil {
			return paymentPlan{}, err
		}
		plan := paymentPlan{
			Method:        constants.PaymentMethodCOD,
			PaymentStatus: constants.PaymentStatusPending,
			WalletPaid:    walletUsed,
			OnlinePaid:    decimal.Zero,
			CODAmount:     remaining,
		}
		if walletUsed.IsPositive() {
			plan.Method = constants.PaymentMethodWalletCOD
		}
		return plan, nil
	case constants.PaymentMethodWallet:
		if !summary.UseWallet {
			return paymentPlan{}, ErrWalletNotSelected
		}
		if remaining.IsPositive() {
			return paymentPlan{}, ErrWalletInsufficientBalance.WithMessagef("Insufficient wallet balance. Available: %s", formatRupees(summary.WalletBalance))
		}
		return walletCovers, nil
	case constants.PaymentMethodOnline, constants.PaymentMethodWalletOnline:
		if !remaining.IsPositive() {
			return paymentPlan{}, ErrNoExternalPaymentNeeded
		}
		plan := paymentPlan{
			Method:        constants.PaymentMethodOnline,
			PaymentStatus: constants.PaymentStatusCompleted,
			WalletPaid:    walletUsed,
			OnlinePaid:    remaining,
			CODAmount:     decimal.Zero,
		}
		if walletUsed.IsPositive() {
			plan.Method = constants.PaymentMethodWalletOnline
		}
		return plan, nil
	default:
		return paymentPlan{}, ErrInvalidPaymentMethod
	}
}

// placeOrder 单事务内扣库存、建单、记券、扣钱包、写流水
func (s *OrderService) placeOrder(ctx context.Context, input PlaceOrderInput, address *models.Address, summary *CheckoutSummary, plan paymentPlan, payment *confirmedPayment) (*models.Order, error) {
	log := logger.FromContext(ctx)
	now := s.now()
	order := &models.Order{
		OrderNo:          s.generateOrderNo(now),
		UserID:           input.UserID,
		AddressID:        &address.ID,
		FullName:         address.FullName,
		Mobile:           address.Mobile,
		StreetAddress:    address.StreetAddress,
		City:             address.City,
		State:            address.State,
		PostalCode:       address.PostalCode,
		Status:           constants.OrderStatusPending,
		PaymentMethod:    plan.Method,
		PaymentStatus:    plan.PaymentStatus,
		Currency:         summary.Currency,
		Subtotal:         models.NewMoneyFromDecimal(summary.Subtotal),
		DiscountAmount:   models.NewMoneyFromDecimal(summary.OfferDiscount),
		CouponCode:       summary.CouponCode,
		CouponDiscount:   models.NewMoneyFromDecimal(summary.CouponDiscount),
		ShippingCharge:   models.NewMoneyFromDecimal(summary.ShippingCharge),
		TotalAmount:      models.NewMoneyFromDecimal(summary.TotalAmount),
		WalletPaidAmount: models.NewMoneyFromDecimal(plan.WalletPaid),
		OnlinePaidAmount: models.NewMoneyFromDecimal(plan.OnlinePaid),
		CODAmount:        models.NewMoneyFromDecimal(plan.CODAmount),
		RefundedAmount:   models.ZeroMoney(),
		OrderNotes:       strings.TrimSpace(input.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if summary.Coupon != nil && summary.Coupon.Coupon != nil {
		order.CouponID = &summary.Coupon.Coupon.ID
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		variantRepo := s.variantRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		items := make([]models.OrderItem, 0, len(summary.Lines))
		for _, line := range summary.Lines {
			variant, err := variantRepo.GetByIDForUpdate(line.VariantID)
			if err != nil {
				return err
			}
			if variant == nil {
				return ErrVariantNotFound
			}
			affected, err := variantRepo.DecrementStock(variant.ID, line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrInsufficientStock.WithMessagef("Only %d units of %s (%s) are available", variant.Stock, line.ProductName, line.Colour)
			}
			items = append(items, models.OrderItem{
				ProductID:      line.ProductID,
				VariantID:      line.VariantID,
				ProductName:    line.ProductName,
				VariantColour:  line.Colour,
				Price:          models.NewMoneyFromDecimal(line.Quote.FinalPrice),
				OriginalPrice:  models.NewMoneyFromDecimal(line.Quote.OriginalPrice),
				DiscountAmount: models.NewMoneyFromDecimal(line.Quote.DiscountAmount),
				Quantity:       line.Quantity,
				Status:         constants.OrderItemStatusPending,
				RefundAmount:   models.ZeroMoney(),
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		if err := orderRepo.Create(order, items); err != nil {
			return normalizePersistenceError(err)
		}

		if order.CouponID != nil {
			if _, err := s.coupons.RecordUsageInTx(tx, *order.CouponID, input.UserID, order.ID, summary.CouponDiscount, summary.Subtotal); err != nil {
				return err
			}
		}
		if plan.WalletPaid.IsPositive() {
			if _, err := s.wallets.DebitInTx(tx, WalletChangeInput{
				UserID:      input.UserID,
				Amount:      plan.WalletPaid,
				Description: fmt.Sprintf("Payment for order %s", order.OrderNo),
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
		}
		if payment != nil {
			paidAt := now
			if err := s.paymentRepo.WithTx(tx).Create(&models.Payment{
				OrderID:          order.ID,
				UserID:           input.UserID,
				Provider:         payment.Provider,
				GatewayOrderID:   payment.GatewayOrderID,
				GatewayPaymentID: payment.PaymentID,
				Receipt:          payment.Receipt,
				Amount:           models.NewMoneyFromDecimal(payment.Amount),
				Currency:         payment.Currency,
				Status:           payment.Status,
				ProviderPayload:  models.JSON(payment.Raw),
				PaidAt:           &paidAt,
				CreatedAt:        now,
				UpdatedAt:        now,
			}); err != nil {
				return normalizePersistenceError(err)
			}
		}

		// 购物车与订单同事务清空，清空失败整单回滚
		if !summary.BuyNow() && summary.CartID != 0 {
			if err := s.cartRepo.WithTx(tx).Clear(summary.CartID); err != nil {
				return err
			}
		}

		notes := "Order placed successfully."
		if summary.BuyNow() {
			notes = "Order placed via Buy Now"
		}
		return s.appendHistory(orderRepo, order.ID, "", constants.OrderStatusPending, constants.ActorUser, &input.UserID, notes, now)
	})
	if err != nil {
		log.Warnw("order_place_failed", "user_id", input.UserID, "payment_method", plan.Method, "error", err)
		return nil, normalizePersistenceError(err)
	}

	if input.Session != nil {
		if err := input.Session.ClearAfterOrder(ctx, summary.BuyNow()); err != nil {
			log.Warnw("order_session_clear_failed", "order_id", order.OrderNo, "error", err)
		}
	}
	log.Infow("order_placed",
		"order_id", order.OrderNo,
		"user_id", input.UserID,
		"payment_method", plan.Method,
		"total_amount", summary.TotalAmount.StringFixed(2),
		"wallet_paid", plan.WalletPaid.StringFixed(2),
		"online_paid", plan.OnlinePaid.StringFixed(2),
	)
	return order, nil
}

func (s *OrderService) appendHistory(orderRepo *repository.GormOrderRepository, orderID uint, from, to, actor string, actorID *uint, notes string, now time.Time) error {
	return orderRepo.CreateHistory(&models.OrderStatusHistory{
		OrderID:     orderID,
		OldStatus:   from,
		NewStatus:   to,
		ChangedBy:   actor,
		ChangedByID: actorID,
		Notes:       s.orderPolicy.capNotes(notes),
		CreatedAt:   now,
	})
}

// generateOrderNo 前缀 + 时间戳 + 4 位随机数
func (s *OrderService) generateOrderNo(now time.Time) string {
	return fmt.Sprintf("%s%s%s", s.orderPolicy.IDPrefix, now.Format("20060102150405"), randNumeric(4))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
