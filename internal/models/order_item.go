package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem 订单项，商品信息为下单时快照
type OrderItem struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID            uint       `gorm:"index;not null" json:"order_id"`                               // 订单ID
	ProductID          uint       `gorm:"index;not null" json:"product_id"`                             // 商品ID
	VariantID          uint       `gorm:"index;not null" json:"variant_id"`                             // 规格ID
	ProductName        string     `gorm:"type:varchar(200);not null" json:"product_name"`               // 商品名快照
	VariantColour      string     `gorm:"type:varchar(20);not null" json:"variant_colour"`              // 规格快照
	Price              Money      `gorm:"type:decimal(10,2);not null" json:"price"`                     // 成交单价
	OriginalPrice      Money      `gorm:"type:decimal(10,2);not null" json:"original_price"`            // 原价
	DiscountAmount     Money      `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"` // 单件活动折扣
	Quantity           int        `gorm:"not null" json:"quantity"`                                     // 数量
	Status             string     `gorm:"type:varchar(20);index;not null" json:"status"`                // 订单项状态
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`               // 取消原因
	CancelledAt        *time.Time `json:"cancelled_at"`                                                 // 取消时间
	ReturnReason       string     `gorm:"type:text" json:"return_reason,omitempty"`                     // 退货原因
	ReturnRequestedAt  *time.Time `json:"return_requested_at"`                                          // 退货申请时间
	ReturnedAt         *time.Time `json:"returned_at"`                                                  // 退货完成时间
	RefundAmount       Money      `gorm:"type:decimal(10,2);not null;default:0" json:"refund_amount"`   // 实际退回金额
	DeliveredAt        *time.Time `json:"delivered_at"`                                                 // 签收时间
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal 单行实付金额（单价 × 数量）
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Decimal.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}
