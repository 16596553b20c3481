package models

import (
	"time"

	"github.com/timestamp-store/internal/constants"

	"gorm.io/gorm"
)

// Offer 限时折扣活动（作用于单个商品或整个分类）
type Offer struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                   // 主键
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`                 // 活动名称
	OfferType   string         `gorm:"type:varchar(20);not null;index" json:"offer_type"`      // 作用范围（product/category）
	ProductID   *uint          `gorm:"index" json:"product_id,omitempty"`                      // 商品ID
	CategoryID  *uint          `gorm:"index" json:"category_id,omitempty"`                     // 分类ID
	Discount    Money          `gorm:"type:decimal(5,2);not null" json:"discount"`             // 折扣百分比
	StartDate   time.Time      `gorm:"index;not null" json:"start_date"`                       // 开始日期（含）
	EndDate     time.Time      `gorm:"index;not null" json:"end_date"`                         // 结束日期（含）
	Status      string         `gorm:"type:varchar(10);not null;default:'active';index" json:"status"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Offer) TableName() string {
	return "offers"
}

// IsActiveOn 状态为 active 且 day 落在有效期内
func (o Offer) IsActiveOn(day time.Time) bool {
	return o.Status == constants.OfferStatusActive && withinDates(day, o.StartDate, o.EndDate)
}
