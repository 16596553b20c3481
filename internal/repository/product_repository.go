package repository

import (
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品与分类数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	GetCategoryByID(id uint) (*models.Category, error)
	Create(product *models.Product) error
	CreateCategory(category *models.Category) error
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// GetByID 获取商品（带分类）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Product](r.db.Preload("Category").Where("id = ?", id))
}

// GetCategoryByID 获取分类
func (r *GormProductRepository) GetCategoryByID(id uint) (*models.Category, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Category](r.db.Where("id = ?", id))
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// CreateCategory 创建分类
func (r *GormProductRepository) CreateCategory(category *models.Category) error {
	return r.db.Create(category).Error
}
