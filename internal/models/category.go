package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 商品分类（允许一级父分类）
type Category struct {
	ID          uint           `gorm:"primarykey" json:"id"`                            // 主键
	Name        string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"` // 分类名
	Slug        string         `gorm:"type:varchar(80);uniqueIndex" json:"slug"`        // 路由标识
	Description string         `gorm:"type:varchar(255)" json:"description"`            // 描述
	ParentID    *uint          `gorm:"index" json:"parent_id,omitempty"`                // 父分类
	IsListed    bool           `gorm:"not null;default:true;index" json:"is_listed"`    // 是否上架（软下架）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                      // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                  // 软删除时间
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}
