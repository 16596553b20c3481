package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                 // 主键
	Name        string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`   // 商品名
	Slug        string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`   // 路由标识
	BasePrice   Money          `gorm:"type:decimal(10,2);not null;default:0" json:"base_price"` // 基础价
	Description string         `gorm:"type:text" json:"description"`                          // 商品描述
	IsListed    bool           `gorm:"not null;default:true;index" json:"is_listed"`          // 是否上架
	CategoryID  *uint          `gorm:"index" json:"category_id,omitempty"`                    // 分类ID（可空）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间

	Category *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// IsAvailable 商品及其分类均处于上架状态
func (p Product) IsAvailable() bool {
	if !p.IsListed {
		return false
	}
	if p.Category != nil && !p.Category.IsListed {
		return false
	}
	return true
}

// ProductVariant 商品规格（颜色），承载售价与库存
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                             // 主键
	ProductID uint           `gorm:"not null;uniqueIndex:idx_variant_product_colour" json:"product_id"` // 商品ID
	Colour    string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_variant_product_colour" json:"colour"`
	Price     Money          `gorm:"type:decimal(10,2);not null" json:"price"`        // 原价
	Stock     int            `gorm:"not null;default:0" json:"stock"`                 // 库存
	IsListed  bool           `gorm:"not null;default:true;index" json:"is_listed"`    // 是否上架
	CreatedAt time.Time      `json:"created_at"`                                       // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                       // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
