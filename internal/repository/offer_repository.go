package repository

import (
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// OfferRepository 活动数据访问接口
type OfferRepository interface {
	GetByID(id uint) (*models.Offer, error)
	FindCurrentProductOffer(productID uint, day time.Time) (*models.Offer, error)
	FindCurrentCategoryOffer(categoryID uint, day time.Time) (*models.Offer, error)
	Create(offer *models.Offer) error
	Update(offer *models.Offer) error
	List(filter OfferListFilter) ([]models.Offer, int64, error)
	ExpireEndedBefore(day time.Time) (int64, error)
	CountByWindow(offerType string, day time.Time) (OfferWindowCounts, error)
}

// OfferWindowCounts 活动按有效期窗口的计数
type OfferWindowCounts struct {
	Active   int64
	Upcoming int64
	Expired  int64
}

// GormOfferRepository GORM 实现
type GormOfferRepository struct {
	db *gorm.DB
}

// NewOfferRepository 创建活动仓储
func NewOfferRepository(db *gorm.DB) *GormOfferRepository {
	return &GormOfferRepository{db: db}
}

// GetByID 获取活动
func (r *GormOfferRepository) GetByID(id uint) (*models.Offer, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Offer](r.db.Where("id = ?", id))
}

// FindCurrentProductOffer 当天有效的最早一条商品活动
func (r *GormOfferRepository) FindCurrentProductOffer(productID uint, day time.Time) (*models.Offer, error) {
	if productID == 0 {
		return nil, nil
	}
	return r.findCurrent(r.db.Where("offer_type = ? AND product_id = ?", constants.OfferTypeProduct, productID), day)
}

// FindCurrentCategoryOffer 当天有效的最早一条分类活动
func (r *GormOfferRepository) FindCurrentCategoryOffer(categoryID uint, day time.Time) (*models.Offer, error) {
	if categoryID == 0 {
		return nil, nil
	}
	return r.findCurrent(r.db.Where("offer_type = ? AND category_id = ?", constants.OfferTypeCategory, categoryID), day)
}

func (r *GormOfferRepository) findCurrent(query *gorm.DB, day time.Time) (*models.Offer, error) {
	day = models.DateOnly(day)
	return firstOrNil[models.Offer](query.
		Where("status = ?", constants.OfferStatusActive).
		Where("start_date <= ? AND end_date >= ?", day, day).
		Order("created_at asc, id asc"))
}

// Create 创建活动
func (r *GormOfferRepository) Create(offer *models.Offer) error {
	return r.db.Create(offer).Error
}

// Update 更新活动
func (r *GormOfferRepository) Update(offer *models.Offer) error {
	return r.db.Save(offer).Error
}

// List 分页查询活动
func (r *GormOfferRepository) List(filter OfferListFilter) ([]models.Offer, int64, error) {
	query := r.db.Model(&models.Offer{})
	if filter.OfferType != "" {
		query = query.Where("offer_type = ?", filter.OfferType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var offers []models.Offer
	if err := query.Order("created_at desc, id desc").Find(&offers).Error; err != nil {
		return nil, 0, err
	}
	return offers, total, nil
}

// ExpireEndedBefore 将结束日期早于 day 的 active 活动置为 expired
func (r *GormOfferRepository) ExpireEndedBefore(day time.Time) (int64, error) {
	result := r.db.Model(&models.Offer{}).
		Where("status = ? AND end_date < ?", constants.OfferStatusActive, models.DateOnly(day)).
		Update("status", constants.OfferStatusExpired)
	return result.RowsAffected, result.Error
}

// CountByWindow 统计某类活动的进行中、未开始、已过期数量
func (r *GormOfferRepository) CountByWindow(offerType string, day time.Time) (OfferWindowCounts, error) {
	day = models.DateOnly(day)
	var counts OfferWindowCounts
	base := func() *gorm.DB {
		return r.db.Model(&models.Offer{}).Where("offer_type = ?", offerType)
	}
	if err := base().
		Where("status = ? AND start_date <= ? AND end_date >= ?", constants.OfferStatusActive, day, day).
		Count(&counts.Active).Error; err != nil {
		return counts, err
	}
	if err := base().
		Where("status = ? AND start_date > ?", constants.OfferStatusActive, day).
		Count(&counts.Upcoming).Error; err != nil {
		return counts, err
	}
	if err := base().
		Where("(status = ? OR end_date < ?)", constants.OfferStatusExpired, day).
		Count(&counts.Expired).Error; err != nil {
		return counts, err
	}
	return counts, nil
}
