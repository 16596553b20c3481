package repository

import (
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	GetOrCreateCart(userID uint) (*models.Cart, error)
	GetItems(cartID uint) ([]models.CartItem, error)
	GetItem(cartID, itemID uint) (*models.CartItem, error)
	FindLine(cartID, productID, variantID uint) (*models.CartItem, error)
	SaveItem(item *models.CartItem) error
	DeleteItem(cartID, itemID uint) error
	Clear(cartID uint) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// GetOrCreateCart 获取用户购物车，不存在时创建
func (r *GormCartRepository) GetOrCreateCart(userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID, Status: constants.CartStatusActive}
	// user_id 唯一，并发创建时只会保留一行
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, err
	}
	return firstOrNil[models.Cart](r.db.Where("user_id = ?", userID))
}

// GetItems 获取购物车全部行（带商品、分类、规格）
func (r *GormCartRepository) GetItems(cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.Preload("Product.Category").Preload("Variant").
		Where("cart_id = ?", cartID).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

// GetItem 获取购物车中的一行
func (r *GormCartRepository) GetItem(cartID, itemID uint) (*models.CartItem, error) {
	if cartID == 0 || itemID == 0 {
		return nil, nil
	}
	return firstOrNil[models.CartItem](r.db.Preload("Product.Category").Preload("Variant").
		Where("id = ? AND cart_id = ?", itemID, cartID))
}

// FindLine 按 (商品, 规格) 查找购物车行
func (r *GormCartRepository) FindLine(cartID, productID, variantID uint) (*models.CartItem, error) {
	return firstOrNil[models.CartItem](r.db.
		Where("cart_id = ? AND product_id = ? AND variant_id = ?", cartID, productID, variantID))
}

// SaveItem 新增或更新购物车行
func (r *GormCartRepository) SaveItem(item *models.CartItem) error {
	return r.db.Omit(clause.Associations).Save(item).Error
}

// DeleteItem 删除购物车行
func (r *GormCartRepository) DeleteItem(cartID, itemID uint) error {
	return r.db.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{}).Error
}

// Clear 清空购物车
func (r *GormCartRepository) Clear(cartID uint) error {
	return r.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
