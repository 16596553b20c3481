package service

import (
	"strings"

	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderDiscount 订单折扣合计（活动折扣 + 优惠券）
type OrderDiscount struct {
	OfferDiscount  decimal.Decimal `json:"offer_discount"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Total          decimal.Decimal `json:"total"`
}

// OrderDetail 订单详情
type OrderDetail struct {
	Order    *models.Order               `json:"order"`
	History  []models.OrderStatusHistory `json:"history"`
	Discount OrderDiscount               `json:"discount"`
	Payments []models.Payment            `json:"payments,omitempty"`
}

// GetOrderForUser 获取用户订单
func (s *OrderService) GetOrderForUser(userID uint, orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNoForUser(orderNo, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderDetailForUser 用户订单详情（含流水与折扣）
func (s *OrderService) GetOrderDetailForUser(userID uint, orderNo string) (*OrderDetail, error) {
	order, err := s.GetOrderForUser(userID, orderNo)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(order)
}

// GetOrderDetailAdmin 后台订单详情
func (s *OrderService) GetOrderDetailAdmin(orderNo string) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.buildDetail(order)
}

func (s *OrderService) buildDetail(order *models.Order) (*OrderDetail, error) {
	history, err := s.orderRepo.ListHistory(order.ID)
	if err != nil {
		return nil, err
	}
	discount, err := s.TotalDiscount(order)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByOrder(order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, History: history, Discount: *discount, Payments: payments}, nil
}

// ListOrdersForUser 用户订单列表
func (s *OrderService) ListOrdersForUser(userID uint, page, pageSize int) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(repository.OrderListFilter{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	})
}

// ListOrdersAdmin 后台订单列表
func (s *OrderService) ListOrdersAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.Status != "" {
		status := NormalizeOrderStatus(filter.Status)
		if status == "" {
			return nil, 0, ErrInvalidOrderStatus
		}
		filter.Status = status
	}
	return s.orderRepo.ListAdmin(filter)
}

// OrderHistory 订单状态流水（新在前）
func (s *OrderService) OrderHistory(orderID uint) ([]models.OrderStatusHistory, error) {
	return s.orderRepo.ListHistory(orderID)
}

// TotalDiscount 订单的活动折扣与优惠券折扣合计
func (s *OrderService) TotalDiscount(order *models.Order) (*OrderDiscount, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}
	items := order.Items
	if items == nil {
		var err error
		items, err = s.orderRepo.ListItems(order.ID)
		if err != nil {
			return nil, err
		}
	}
	result := &OrderDiscount{OfferDiscount: decimal.Zero, CouponDiscount: decimal.Zero}
	for _, item := range items {
		result.OfferDiscount = result.OfferDiscount.Add(item.DiscountAmount.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	display, err := s.coupons.DiscountForDisplay(order.ID)
	if err != nil {
		return nil, err
	}
	if display != nil {
		result.CouponCode = display.Code
		result.CouponDiscount = display.DiscountAmount
	}
	result.OfferDiscount = result.OfferDiscount.Round(2)
	result.Total = result.OfferDiscount.Add(result.CouponDiscount)
	return result, nil
}

// RefundBreakdown 按优惠券分摊展示订单项退款金额，itemIDs 为空时展示全部订单项
func (s *OrderService) RefundBreakdown(userID uint, orderNo string, itemIDs []uint) (*RefundAllocation, error) {
	order, err := s.GetOrderForUser(userID, orderNo)
	if err != nil {
		return nil, err
	}
	selected := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		selected[id] = true
	}
	lines := make([]RefundLine, 0, len(order.Items))
	for _, item := range order.Items {
		if len(selected) > 0 && !selected[item.ID] {
			continue
		}
		lines = append(lines, RefundLine{ItemID: item.ID, UnitPrice: item.Price.Decimal, Quantity: item.Quantity})
	}
	if len(lines) == 0 {
		return nil, ErrOrderItemNotFound
	}
	discount, basis, err := s.couponBasis(models.DB, order.ID)
	if err != nil {
		return nil, err
	}
	allocation := AllocateRefund(lines, discount, basis)
	return &allocation, nil
}
