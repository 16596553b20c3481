package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表，收货信息为下单时快照
type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                            // 主键
	OrderNo            string         `gorm:"type:varchar(24);uniqueIndex;not null" json:"order_id"`           // 对外订单号
	UserID             uint           `gorm:"index;not null" json:"user_id"`                                   // 用户ID
	AddressID          *uint          `gorm:"index" json:"address_id,omitempty"`                               // 来源地址
	FullName           string         `gorm:"type:varchar(100);not null" json:"full_name"`                     // 收货人
	Mobile             string         `gorm:"type:varchar(15);not null;index" json:"mobile"`                   // 收货电话
	StreetAddress      string         `gorm:"type:varchar(255);not null" json:"street_address"`                // 街道
	City               string         `gorm:"type:varchar(100);not null" json:"city"`                          // 城市
	State              string         `gorm:"type:varchar(100);not null" json:"state"`                         // 省/州
	PostalCode         string         `gorm:"type:varchar(20);not null" json:"postal_code"`                    // 邮编
	Status             string         `gorm:"type:varchar(20);index;not null" json:"status"`                   // 订单状态
	PaymentMethod      string         `gorm:"type:varchar(20);not null" json:"payment_method"`                 // 支付方式
	PaymentStatus      string         `gorm:"type:varchar(20);not null" json:"payment_status"`                 // 支付状态
	Currency           string         `gorm:"type:varchar(8);not null" json:"currency"`                        // 币种
	Subtotal           Money          `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`           // 商品小计（已含活动折扣）
	DiscountAmount     Money          `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`    // 活动折扣合计
	CouponID           *uint          `gorm:"index" json:"coupon_id,omitempty"`                                // 优惠券ID
	CouponCode         string         `gorm:"type:varchar(20)" json:"coupon_code,omitempty"`                   // 优惠码快照
	CouponDiscount     Money          `gorm:"type:decimal(12,2);not null;default:0" json:"coupon_discount"`    // 优惠券折扣
	ShippingCharge     Money          `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_charge"`    // 运费
	TotalAmount        Money          `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`       // 应付总额
	WalletPaidAmount   Money          `gorm:"type:decimal(12,2);not null;default:0" json:"wallet_paid_amount"` // 钱包支付部分
	OnlinePaidAmount   Money          `gorm:"type:decimal(12,2);not null;default:0" json:"online_paid_amount"` // 在线支付部分
	CODAmount          Money          `gorm:"type:decimal(12,2);not null;default:0" json:"cod_amount"`         // 货到付款部分
	RefundedAmount     Money          `gorm:"type:decimal(12,2);not null;default:0" json:"refunded_amount"`    // 已退回钱包金额
	TrackingNumber     string         `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`              // 物流单号
	OrderNotes         string         `gorm:"type:text" json:"order_notes,omitempty"`                          // 买家备注
	CancellationReason string         `gorm:"type:text" json:"cancellation_reason,omitempty"`                  // 取消原因
	CancelledAt        *time.Time     `gorm:"index" json:"cancelled_at"`                                       // 取消时间
	DeliveredAt        *time.Time     `gorm:"index" json:"delivered_at"`                                       // 签收时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                                      // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                  // 软删除时间

	Items   []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"history,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderStatusHistory 订单状态变更流水（只追加）
type OrderStatusHistory struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"index;not null" json:"order_id"`
	OldStatus   string    `gorm:"type:varchar(20);not null" json:"old_status"`
	NewStatus   string    `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy   string    `gorm:"type:varchar(20);not null" json:"changed_by"` // system/user/admin
	ChangedByID *uint     `json:"changed_by_id,omitempty"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
