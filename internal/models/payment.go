package models

import (
	"time"
)

// Payment 在线支付记录（Razorpay）
type Payment struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID          uint       `gorm:"index;not null" json:"order_id"`                           // 订单ID
	UserID           uint       `gorm:"index;not null" json:"user_id"`                            // 用户ID
	Provider         string     `gorm:"type:varchar(20);not null" json:"provider"`                // 网关标识
	GatewayOrderID   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"gateway_order_id"`
	GatewayPaymentID string     `gorm:"type:varchar(64);index" json:"gateway_payment_id"`
	Receipt          string     `gorm:"type:varchar(40)" json:"receipt"`                          // 对账回执号
	Amount           Money      `gorm:"type:decimal(12,2);not null" json:"amount"`                // 网关确认金额
	Currency         string     `gorm:"type:varchar(8);not null" json:"currency"`                 // 币种
	Status           string     `gorm:"type:varchar(20);index;not null" json:"status"`            // 网关状态
	ProviderPayload  JSON       `gorm:"type:json" json:"provider_payload"`                        // 网关原始返回
	PaidAt           *time.Time `gorm:"index" json:"paid_at"`                                     // 支付完成时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                               // 更新时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
