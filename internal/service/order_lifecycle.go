package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultCancelReason = "No reason provided"

// UpdateOrderStatusInput 后台修改订单状态输入
type UpdateOrderStatusInput struct {
	OrderNo        string
	Status         string
	AdminID        uint
	Notes          string
	TrackingNumber string
}

// UpdateOrderStatus 后台按流转表修改订单状态，并同步到未取消/未退货的订单项
func (s *OrderService) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.Order, error) {
	to := NormalizeOrderStatus(input.Status)
	if to == "" {
		return nil, ErrInvalidOrderStatus.WithMessagef("Unknown order status %q", strings.TrimSpace(input.Status))
	}
	var (
		result *models.Order
		from   string
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		variantRepo := s.variantRepo.WithTx(tx)

		order, err := orderRepo.GetByOrderNoForUpdate(input.OrderNo)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		from = order.Status
		if err := ValidateStatusTransition(from, to); err != nil {
			return err
		}
		now := s.now()
		if tracking := strings.TrimSpace(input.TrackingNumber); tracking != "" {
			order.TrackingNumber = tracking
		}
		items, err := orderRepo.ListItems(order.ID)
		if err != nil {
			return err
		}
		if from == to {
			order.UpdatedAt = now
			order.Items = items
			result = order
			return orderRepo.Update(order)
		}

		var moved []*models.OrderItem
		for i := range items {
			item := &items[i]
			if constants.InStatusSet(item.Status, constants.StatusPropagationSkipped) {
				continue
			}
			item.Status = to
			item.UpdatedAt = now
			switch to {
			case constants.OrderStatusCancelled:
				if err := variantRepo.IncrementStock(item.VariantID, item.Quantity); err != nil {
					return err
				}
				item.CancelledAt = &now
				item.CancellationReason = reasonOrDefault(input.Notes, "Cancelled by admin")
			case constants.OrderStatusDelivered:
				if item.DeliveredAt == nil {
					item.DeliveredAt = &now
				}
			case constants.OrderStatusReturned:
				if err := variantRepo.IncrementStock(item.VariantID, item.Quantity); err != nil {
					return err
				}
				item.ReturnedAt = &now
			}
			moved = append(moved, item)
		}

		order.Status = to
		order.UpdatedAt = now
		switch to {
		case constants.OrderStatusDelivered:
			order.PaymentStatus = constants.PaymentStatusCompleted
			if order.DeliveredAt == nil {
				order.DeliveredAt = &now
			}
		case constants.OrderStatusCancelled:
			order.PaymentStatus = constants.PaymentStatusCancelled
			order.CancelledAt = &now
			order.CancellationReason = reasonOrDefault(input.Notes, "Cancelled by admin")
			credited, err := s.refundItemsInTx(tx, order, moved, true, fmt.Sprintf("Refund for cancelled order %s", order.OrderNo))
			if err != nil {
				return err
			}
			if credited.IsPositive() {
				order.PaymentStatus = constants.PaymentStatusRefunded
			}
		case constants.OrderStatusReturned:
			order.PaymentStatus = constants.PaymentStatusRefunded
			if _, err := s.refundItemsInTx(tx, order, moved, false, fmt.Sprintf("Refund for returned order %s", order.OrderNo)); err != nil {
				return err
			}
		}
		for _, item := range moved {
			if err := orderRepo.UpdateItem(item); err != nil {
				return err
			}
		}
		if err := s.recalculateTotals(tx, order, items); err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}

		notes := strings.TrimSpace(input.Notes)
		if notes == "" {
			notes = fmt.Sprintf("Status updated from %s to %s", displayStatus(from), displayStatus(to))
		}
		if err := s.appendHistory(orderRepo, order.ID, from, to, constants.ActorAdmin, adminRef(input.AdminID), notes, now); err != nil {
			return err
		}
		order.Items = items
		result = order
		return nil
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_status_updated",
		"order_id", result.OrderNo,
		"admin_id", input.AdminID,
		"old_status", from,
		"new_status", result.Status,
		"payment_status", result.PaymentStatus,
	)
	return result, nil
}

// CancelItem 用户取消单个订单项，回补库存并按分摊结果退回钱包
func (s *OrderService) CancelItem(ctx context.Context, userID, itemID uint, reason string) (*models.Order, error) {
	reason = reasonOrDefault(reason, defaultCancelReason)
	var (
		result   *models.Order
		credited decimal.Decimal
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		item, order, err := s.lockOwnedItem(orderRepo, userID, itemID)
		if err != nil {
			return err
		}
		if !constants.InStatusSet(item.Status, constants.CancellableOrderStatuses) {
			return ErrItemNotCancellable.WithMessagef("Items that are %s cannot be cancelled", displayStatus(item.Status))
		}
		now := s.now()
		if err := s.variantRepo.WithTx(tx).IncrementStock(item.VariantID, item.Quantity); err != nil {
			return err
		}
		item.Status = constants.OrderItemStatusCancelled
		item.CancellationReason = reason
		item.CancelledAt = &now
		item.UpdatedAt = now

		items, err := orderRepo.ListItems(order.ID)
		if err != nil {
			return err
		}
		items = replaceItem(items, *item)
		fullyCancelled := countActiveItems(items) == 0
		credited, err = s.refundItemsInTx(tx, order, []*models.OrderItem{item}, fullyCancelled,
			fmt.Sprintf("Refund for cancelled item %s in order %s", item.ProductName, order.OrderNo))
		if err != nil {
			return err
		}
		if err := orderRepo.UpdateItem(item); err != nil {
			return err
		}
		items = replaceItem(items, *item)

		if err := s.recalculateTotals(tx, order, items); err != nil {
			return err
		}
		if err := s.appendHistory(orderRepo, order.ID, order.Status, order.Status, constants.ActorUser, &userID,
			fmt.Sprintf("Item cancelled: %s (%s)", item.ProductName, item.VariantColour), now); err != nil {
			return err
		}
		if err := s.applyRollup(orderRepo, order, items, now); err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}
		order.Items = items
		result = order
		return nil
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_item_cancelled",
		"order_id", result.OrderNo,
		"item_id", itemID,
		"user_id", userID,
		"refund", credited.StringFixed(2),
	)
	return result, nil
}

// RequestReturn 签收后退货窗口内发起退货申请
func (s *OrderService) RequestReturn(ctx context.Context, userID, itemID uint, reason string) (*models.OrderItem, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < s.orderPolicy.ReturnReasonMinLength {
		return nil, ErrReturnReasonTooShort.WithMessagef("Return reason must be at least %d characters", s.orderPolicy.ReturnReasonMinLength)
	}
	var result *models.OrderItem
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		item, order, err := s.lockOwnedItem(orderRepo, userID, itemID)
		if err != nil {
			return err
		}
		if item.Status != constants.OrderItemStatusDelivered {
			return ErrReturnNotAllowed
		}
		deliveredAt := item.DeliveredAt
		if deliveredAt == nil {
			deliveredAt = order.DeliveredAt
		}
		if deliveredAt == nil {
			return ErrReturnNotAllowed
		}
		now := s.now()
		if now.Sub(*deliveredAt) > s.orderPolicy.ReturnWindow {
			return ErrReturnWindowExpired.WithMessagef("Returns are accepted within %d days of delivery", int(s.orderPolicy.ReturnWindow.Hours()/24))
		}
		item.Status = constants.OrderItemStatusReturnRequested
		item.ReturnReason = reason
		item.ReturnRequestedAt = &now
		item.UpdatedAt = now
		if err := orderRepo.UpdateItem(item); err != nil {
			return err
		}
		result = item
		return s.appendHistory(orderRepo, order.ID, order.Status, order.Status, constants.ActorUser, &userID,
			fmt.Sprintf("Return requested for item: %s (%s)", item.ProductName, item.VariantColour), now)
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_return_requested", "item_id", itemID, "user_id", userID)
	return result, nil
}

// ApproveReturn 后台通过退货，回补库存并按分摊结果退回钱包
func (s *OrderService) ApproveReturn(ctx context.Context, adminID, itemID uint) (*models.Order, error) {
	var (
		result   *models.Order
		credited decimal.Decimal
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		item, order, err := s.lockReturnRequest(orderRepo, itemID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.variantRepo.WithTx(tx).IncrementStock(item.VariantID, item.Quantity); err != nil {
			return err
		}
		item.Status = constants.OrderItemStatusReturned
		item.ReturnedAt = &now
		item.UpdatedAt = now

		credited, err = s.refundItemsInTx(tx, order, []*models.OrderItem{item}, false,
			fmt.Sprintf("Refund for returned item %s in order %s", item.ProductName, order.OrderNo))
		if err != nil {
			return err
		}
		if err := orderRepo.UpdateItem(item); err != nil {
			return err
		}
		items, err := orderRepo.ListItems(order.ID)
		if err != nil {
			return err
		}
		items = replaceItem(items, *item)

		if err := s.recalculateTotals(tx, order, items); err != nil {
			return err
		}
		if err := s.appendHistory(orderRepo, order.ID, order.Status, order.Status, constants.ActorAdmin, adminRef(adminID),
			fmt.Sprintf("Return approved for item: %s (%s)", item.ProductName, item.VariantColour), now); err != nil {
			return err
		}
		if err := s.applyRollup(orderRepo, order, items, now); err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}
		order.Items = items
		result = order
		return nil
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_return_approved",
		"order_id", result.OrderNo,
		"item_id", itemID,
		"admin_id", adminID,
		"refund", credited.StringFixed(2),
	)
	return result, nil
}

// RejectReturn 后台驳回退货，订单项回到已签收，库存不变
func (s *OrderService) RejectReturn(ctx context.Context, adminID, itemID uint, reason string) (*models.OrderItem, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}
	var result *models.OrderItem
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		item, order, err := s.lockReturnRequest(orderRepo, itemID)
		if err != nil {
			return err
		}
		now := s.now()
		item.Status = constants.OrderItemStatusDelivered
		item.ReturnReason = strings.TrimSpace(fmt.Sprintf("%s\nREJECTED: %s", item.ReturnReason, reason))
		item.UpdatedAt = now
		if err := orderRepo.UpdateItem(item); err != nil {
			return err
		}
		result = item
		return s.appendHistory(orderRepo, order.ID, order.Status, order.Status, constants.ActorAdmin, adminRef(adminID),
			fmt.Sprintf("Return rejected for item: %s. Reason: %s", item.ProductName, reason), now)
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_return_rejected", "item_id", itemID, "admin_id", adminID)
	return result, nil
}

// CancelOrder 用户取消整单：取消全部可取消订单项、回补库存、已收款部分退回钱包
func (s *OrderService) CancelOrder(ctx context.Context, userID uint, orderNo, reason string) (*models.Order, error) {
	reason = reasonOrDefault(reason, defaultCancelReason)
	var (
		result   *models.Order
		credited decimal.Decimal
	)
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		variantRepo := s.variantRepo.WithTx(tx)

		order, err := orderRepo.GetByOrderNoForUpdate(orderNo)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}
		if !constants.InStatusSet(order.Status, constants.CancellableOrderStatuses) {
			return ErrOrderNotCancellable.WithMessagef("Orders that are %s cannot be cancelled", displayStatus(order.Status))
		}
		items, err := orderRepo.ListItems(order.ID)
		if err != nil {
			return err
		}
		now := s.now()
		var cancelled []*models.OrderItem
		for i := range items {
			item := &items[i]
			if !constants.InStatusSet(item.Status, constants.CancellableOrderStatuses) {
				continue
			}
			if err := variantRepo.IncrementStock(item.VariantID, item.Quantity); err != nil {
				return err
			}
			item.Status = constants.OrderItemStatusCancelled
			item.CancellationReason = reason
			item.CancelledAt = &now
			item.UpdatedAt = now
			cancelled = append(cancelled, item)
		}

		credited, err = s.refundItemsInTx(tx, order, cancelled, true, fmt.Sprintf("Refund for cancelled order %s", order.OrderNo))
		if err != nil {
			return err
		}
		for _, item := range cancelled {
			if err := orderRepo.UpdateItem(item); err != nil {
				return err
			}
		}

		from := order.Status
		order.Status = constants.OrderStatusCancelled
		order.CancellationReason = reason
		order.CancelledAt = &now
		order.UpdatedAt = now
		order.PaymentStatus = constants.PaymentStatusPending
		if credited.IsPositive() {
			order.PaymentStatus = constants.PaymentStatusRefunded
		}
		if err := s.recalculateTotals(tx, order, items); err != nil {
			return err
		}
		if err := orderRepo.Update(order); err != nil {
			return err
		}
		if err := s.appendHistory(orderRepo, order.ID, from, constants.OrderStatusCancelled, constants.ActorUser, &userID, reason, now); err != nil {
			return err
		}
		order.Items = items
		result = order
		return nil
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.FromContext(ctx).Infow("order_cancelled",
		"order_id", result.OrderNo,
		"user_id", userID,
		"refund", credited.StringFixed(2),
		"payment_status", result.PaymentStatus,
	)
	return result, nil
}

func (s *OrderService) lockOwnedItem(orderRepo *repository.GormOrderRepository, userID, itemID uint) (*models.OrderItem, *models.Order, error) {
	item, order, err := s.lockItemWithOrder(orderRepo, itemID)
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != userID {
		return nil, nil, ErrOrderItemNotFound
	}
	return item, order, nil
}

func (s *OrderService) lockReturnRequest(orderRepo *repository.GormOrderRepository, itemID uint) (*models.OrderItem, *models.Order, error) {
	item, order, err := s.lockItemWithOrder(orderRepo, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item.Status != constants.OrderItemStatusReturnRequested {
		return nil, nil, ErrNoReturnRequest
	}
	return item, order, nil
}

// lockItemWithOrder 先锁订单行再锁订单项，与整单操作的加锁顺序一致
func (s *OrderService) lockItemWithOrder(orderRepo *repository.GormOrderRepository, itemID uint) (*models.OrderItem, *models.Order, error) {
	found, err := orderRepo.GetItem(itemID)
	if err != nil {
		return nil, nil, err
	}
	if found == nil {
		return nil, nil, ErrOrderItemNotFound
	}
	order, err := orderRepo.GetByIDForUpdate(found.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderItemNotFound
	}
	item, err := orderRepo.GetItemForUpdate(itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.OrderID != order.ID {
		return nil, nil, ErrOrderItemNotFound
	}
	return item, order, nil
}

// refundItemsInTx 按优惠券分摊计算退款并在已收款范围内退回钱包，返回实际入账金额
// 订单项只记录实际入账的部分，先记到订单项，运费最后
func (s *OrderService) refundItemsInTx(tx *gorm.DB, order *models.Order, items []*models.OrderItem, includeShipping bool, description string) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, nil
	}
	discount, basis, err := s.couponBasis(tx, order.ID)
	if err != nil {
		return decimal.Zero, err
	}
	lines := make([]RefundLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, RefundLine{ItemID: item.ID, UnitPrice: item.Price.Decimal, Quantity: item.Quantity})
	}
	allocation := AllocateRefund(lines, discount, basis)

	total := allocation.TotalRefund
	if includeShipping {
		total = total.Add(order.ShippingCharge.Decimal)
	}
	credit := decimal.Min(total, refundableAmount(order))
	if !credit.IsPositive() {
		return decimal.Zero, nil
	}

	left := credit
	for i, line := range allocation.Lines {
		amount := decimal.Min(line.RefundAmount, left)
		items[i].RefundAmount = models.NewMoneyFromDecimal(amount)
		left = left.Sub(amount)
	}

	input := WalletChangeInput{
		UserID:      order.UserID,
		Amount:      credit,
		Description: description,
		OrderID:     &order.ID,
	}
	if len(items) == 1 {
		input.OrderItemID = &items[0].ID
	}
	if _, err := s.wallets.CreditInTx(tx, input); err != nil {
		return decimal.Zero, err
	}
	order.RefundedAmount = models.NewMoneyFromDecimal(order.RefundedAmount.Decimal.Add(credit))
	return credit, nil
}

// couponBasis 订单使用的优惠券折扣与用券前金额
func (s *OrderService) couponBasis(tx *gorm.DB, orderID uint) (decimal.Decimal, decimal.Decimal, error) {
	display, err := s.coupons.DiscountForDisplayInTx(tx, orderID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if display == nil {
		return decimal.Zero, decimal.Zero, nil
	}
	return display.DiscountAmount, display.CartTotalBeforeDiscount, nil
}

// recalculateTotals 按有效订单项重算小计、运费、券后总额
// 优惠券只保留有效订单项的分摊额（原折扣减去已取消/已退货项分走的部分），
// 运费不超过下单时已收取的运费，保证总额等于商家实际保留的金额
func (s *OrderService) recalculateTotals(tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	discount, basis, err := s.couponBasis(tx, order.ID)
	if err != nil {
		return err
	}
	subtotal, offerDiscount := decimal.Zero, decimal.Zero
	var released []RefundLine
	active := 0
	for _, item := range items {
		if !constants.InStatusSet(item.Status, constants.ActiveItemStatuses) {
			released = append(released, RefundLine{ItemID: item.ID, UnitPrice: item.Price.Decimal, Quantity: item.Quantity})
			continue
		}
		active++
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.LineTotal())
		offerDiscount = offerDiscount.Add(item.DiscountAmount.Decimal.Mul(qty))
	}

	shipping := decimal.Zero
	if active > 0 {
		shipping = decimal.Min(s.checkoutPolicy.ShippingFor(subtotal), order.ShippingCharge.Decimal)
	}
	coupon := order.CouponDiscount.Decimal
	if basis.IsPositive() {
		coupon = discount
		for _, line := range AllocateRefund(released, discount, basis).Lines {
			coupon = coupon.Sub(line.CouponShare)
		}
	}
	coupon = decimal.Min(decimal.Max(coupon, decimal.Zero), subtotal)
	total := decimal.Max(subtotal.Sub(coupon).Add(shipping), decimal.Zero)

	order.Subtotal = models.NewMoneyFromDecimal(subtotal)
	order.DiscountAmount = models.NewMoneyFromDecimal(offerDiscount)
	order.CouponDiscount = models.NewMoneyFromDecimal(coupon)
	order.ShippingCharge = models.NewMoneyFromDecimal(shipping)
	order.TotalAmount = models.NewMoneyFromDecimal(total)
	return nil
}

// applyRollup 按订单项状态推导订单状态，有变化时写入流水
func (s *OrderService) applyRollup(orderRepo *repository.GormOrderRepository, order *models.Order, items []models.OrderItem, now time.Time) error {
	statuses := make([]string, 0, len(items))
	for _, item := range items {
		statuses = append(statuses, item.Status)
	}
	rollup := ResolveOrderStatusFromItems(statuses, order.Status, order.PaymentStatus)
	if !rollup.Changed {
		return nil
	}
	from := order.Status
	order.Status = rollup.Status
	order.PaymentStatus = rollup.PaymentStatus
	order.UpdatedAt = now
	var notes string
	switch rollup.Status {
	case constants.OrderStatusCancelled:
		if order.RefundedAmount.Decimal.IsPositive() {
			order.PaymentStatus = constants.PaymentStatusRefunded
		}
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
		notes = "All items cancelled"
	case constants.OrderStatusReturned:
		notes = "All items returned"
	case constants.OrderStatusDelivered:
		notes = "All remaining items delivered"
	}
	if rollup.MarkDelivered && order.DeliveredAt == nil {
		order.DeliveredAt = &now
	}
	return s.appendHistory(orderRepo, order.ID, from, rollup.Status, constants.ActorSystem, nil, notes, now)
}

// refundableAmount 已实际收款且尚未退回的金额；货到付款部分在签收或确认收款前不计入
func refundableAmount(order *models.Order) decimal.Decimal {
	collected := order.WalletPaidAmount.Decimal.Add(order.OnlinePaidAmount.Decimal)
	if order.PaymentStatus == constants.PaymentStatusCompleted || order.DeliveredAt != nil {
		collected = collected.Add(order.CODAmount.Decimal)
	}
	return decimal.Max(collected.Sub(order.RefundedAmount.Decimal), decimal.Zero)
}

func countActiveItems(items []models.OrderItem) int {
	count := 0
	for _, item := range items {
		if constants.InStatusSet(item.Status, constants.ActiveItemStatuses) {
			count++
		}
	}
	return count
}

func replaceItem(items []models.OrderItem, updated models.OrderItem) []models.OrderItem {
	for i := range items {
		if items[i].ID == updated.ID {
			items[i] = updated
		}
	}
	return items
}

func reasonOrDefault(reason, fallback string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fallback
	}
	return reason
}

func adminRef(adminID uint) *uint {
	if adminID == 0 {
		return nil
	}
	return &adminID
}
