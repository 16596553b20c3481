package models

import "time"

// CartItem 购物车项，同一购物车内 (商品, 规格) 唯一
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                      // 主键
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`         // 购物车ID
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`      // 商品ID
	VariantID uint      `gorm:"not null;uniqueIndex:idx_cart_line" json:"variant_id"`      // 规格ID
	Quantity  int       `gorm:"not null" json:"quantity"`                                  // 数量
	Price     Money     `gorm:"type:decimal(10,2);not null;default:0" json:"price"`        // 加购时的价格快照（结算不使用）
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                // 更新时间

	Product *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
