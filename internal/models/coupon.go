package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                              // 主键
	Code               string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`                 // 优惠码（大写）
	Description        string         `gorm:"type:text" json:"description"`                                      // 描述
	DiscountType       string         `gorm:"type:varchar(20);not null;default:'fixed'" json:"discount_type"`    // 类型（fixed/percentage）
	DiscountAmount     Money          `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`      // 固定金额
	DiscountPercentage Money          `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`   // 百分比
	MinPurchaseAmount  Money          `gorm:"type:decimal(10,2);not null;default:0" json:"min_purchase_amount"`  // 使用门槛
	StartDate          time.Time      `gorm:"index;not null" json:"start_date"`                                  // 生效日期（含）
	EndDate            time.Time      `gorm:"index;not null" json:"end_date"`                                    // 失效日期（含）
	UsageLimit         *int           `json:"usage_limit"`                                                       // 总使用上限（空表示不限制）
	TimesUsed          int            `gorm:"not null;default:0" json:"times_used"`                              // 已使用次数
	OneTimeUse         bool           `gorm:"not null;default:true" json:"one_time_use"`                         // 每个用户仅可使用一次
	IsActive           bool           `gorm:"not null;default:true" json:"is_active"`                            // 是否启用
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                                        // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// UsageLimitReached 已达到总使用上限
func (c Coupon) UsageLimitReached() bool {
	return c.UsageLimit != nil && *c.UsageLimit > 0 && c.TimesUsed >= *c.UsageLimit
}
