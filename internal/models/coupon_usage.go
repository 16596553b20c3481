package models

import "time"

// CouponUsage 优惠券使用记录，(coupon_id, order_id) 唯一
type CouponUsage struct {
	ID                      uint      `gorm:"primarykey" json:"id"`                                                    // 主键
	CouponID                uint      `gorm:"not null;uniqueIndex:idx_coupon_usage_order;index" json:"coupon_id"`      // 优惠券ID
	UserID                  uint      `gorm:"index;not null" json:"user_id"`                                           // 用户ID
	OrderID                 uint      `gorm:"not null;uniqueIndex:idx_coupon_usage_order" json:"order_id"`             // 订单ID
	DiscountAmount          Money     `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`            // 实际优惠金额
	CartTotalBeforeDiscount Money     `gorm:"type:decimal(10,2);not null;default:0" json:"cart_total_before_discount"` // 用券前金额
	CreatedAt               time.Time `gorm:"index" json:"created_at"`                                                 // 使用时间

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
