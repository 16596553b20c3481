package repository

import (
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VariantRepository 商品规格（库存）数据访问接口
type VariantRepository interface {
	GetByID(id uint) (*models.ProductVariant, error)
	GetByIDForUpdate(id uint) (*models.ProductVariant, error)
	ListByIDs(ids []uint) ([]models.ProductVariant, error)
	Create(variant *models.ProductVariant) error
	DecrementStock(id uint, quantity int) (int64, error)
	IncrementStock(id uint, quantity int) error
	ListLowStock(threshold int) ([]models.ProductVariant, error)
	ListOutOfStock() ([]models.ProductVariant, error)
	WithTx(tx *gorm.DB) *GormVariantRepository
}

// GormVariantRepository GORM 实现
type GormVariantRepository struct {
	db *gorm.DB
}

// NewVariantRepository 创建规格仓储
func NewVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVariantRepository) WithTx(tx *gorm.DB) *GormVariantRepository {
	if tx == nil {
		return r
	}
	return &GormVariantRepository{db: tx}
}

// GetByID 获取规格（带商品与分类）
func (r *GormVariantRepository) GetByID(id uint) (*models.ProductVariant, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.ProductVariant](r.db.Preload("Product.Category").Where("id = ?", id))
}

// GetByIDForUpdate 加锁读取规格行
func (r *GormVariantRepository) GetByIDForUpdate(id uint) (*models.ProductVariant, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.ProductVariant](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// ListByIDs 批量获取规格
func (r *GormVariantRepository) ListByIDs(ids []uint) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return []models.ProductVariant{}, nil
	}
	var variants []models.ProductVariant
	if err := r.db.Preload("Product.Category").Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// Create 创建规格
func (r *GormVariantRepository) Create(variant *models.ProductVariant) error {
	return r.db.Create(variant).Error
}

// DecrementStock 条件扣减库存，库存不足时影响行数为 0
func (r *GormVariantRepository) DecrementStock(id uint, quantity int) (int64, error) {
	if id == 0 || quantity <= 0 {
		return 0, nil
	}
	result := r.db.Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	return result.RowsAffected, result.Error
}

// IncrementStock 回补库存
func (r *GormVariantRepository) IncrementStock(id uint, quantity int) error {
	if id == 0 || quantity <= 0 {
		return nil
	}
	return r.db.Model(&models.ProductVariant{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}

// ListLowStock 库存大于 0 且不高于阈值的在售规格
func (r *GormVariantRepository) ListLowStock(threshold int) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.Preload("Product").
		Where("is_listed = ? AND stock > 0 AND stock <= ?", true, threshold).
		Order("stock asc, id asc").
		Find(&variants).Error
	return variants, err
}

// ListOutOfStock 已售罄的在售规格
func (r *GormVariantRepository) ListOutOfStock() ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.Preload("Product").
		Where("is_listed = ? AND stock <= 0", true).
		Order("id asc").
		Find(&variants).Error
	return variants, err
}
