package repository

import (
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// CouponUsageRepository 优惠券使用记录数据访问接口
type CouponUsageRepository interface {
	Create(usage *models.CouponUsage) error
	ExistsForUser(couponID, userID uint) (bool, error)
	UsedCouponIDsByUser(userID uint) ([]uint, error)
	GetByOrderID(orderID uint) (*models.CouponUsage, error)
	WithTx(tx *gorm.DB) *GormCouponUsageRepository
}

// GormCouponUsageRepository GORM 实现
type GormCouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建优惠券使用记录仓储
func NewCouponUsageRepository(db *gorm.DB) *GormCouponUsageRepository {
	return &GormCouponUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponUsageRepository) WithTx(tx *gorm.DB) *GormCouponUsageRepository {
	if tx == nil {
		return r
	}
	return &GormCouponUsageRepository{db: tx}
}

// Create 创建使用记录
func (r *GormCouponUsageRepository) Create(usage *models.CouponUsage) error {
	return r.db.Create(usage).Error
}

// ExistsForUser 用户是否用过该券
func (r *GormCouponUsageRepository) ExistsForUser(couponID, userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UsedCouponIDsByUser 用户用过的券ID
func (r *GormCouponUsageRepository) UsedCouponIDsByUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.CouponUsage{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("coupon_id", &ids).Error
	return ids, err
}

// GetByOrderID 获取订单的用券记录（带优惠券）
func (r *GormCouponUsageRepository) GetByOrderID(orderID uint) (*models.CouponUsage, error) {
	if orderID == 0 {
		return nil, nil
	}
	return firstOrNil[models.CouponUsage](r.db.Preload("Coupon").Where("order_id = ?", orderID))
}
