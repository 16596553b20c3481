package repository

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByCode(code string) (*models.Coupon, error)
	GetByIDForUpdate(id uint) (*models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	ListRedeemable(day time.Time) ([]models.Coupon, error)
	IncrementTimesUsed(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 获取优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Coupon](r.db.Where("id = ?", id))
}

// GetByCode 按优惠码获取（调用方负责大写规范化）
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return firstOrNil[models.Coupon](r.db.Where("code = ?", code))
}

// GetByIDForUpdate 加锁读取优惠券
func (r *GormCouponRepository) GetByIDForUpdate(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Coupon](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	oneTimeUse, isActive := coupon.OneTimeUse, coupon.IsActive
	if err := r.db.Create(coupon).Error; err != nil {
		return err
	}
	// 带 default 标签的布尔列在零值时会落为数据库默认值，需显式回写
	if oneTimeUse && isActive {
		return nil
	}
	coupon.OneTimeUse, coupon.IsActive = oneTimeUse, isActive
	return r.db.Model(coupon).Updates(map[string]interface{}{
		"one_time_use": oneTimeUse,
		"is_active":    isActive,
	}).Error
}

// Update 更新优惠券
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// List 分页查询优惠券
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	query := r.db.Model(&models.Coupon{})
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("code "+likeOperator(r.db)+" ?", containsPattern(strings.ToUpper(code)))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var coupons []models.Coupon
	if err := query.Order("created_at desc, id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// ListRedeemable 当天处于有效期且未用尽的启用优惠券
func (r *GormCouponRepository) ListRedeemable(day time.Time) ([]models.Coupon, error) {
	day = models.DateOnly(day)
	var coupons []models.Coupon
	err := r.db.
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Where("usage_limit IS NULL OR usage_limit = 0 OR times_used < usage_limit").
		Order("min_purchase_amount asc, id asc").
		Find(&coupons).Error
	return coupons, err
}

// IncrementTimesUsed 条件自增使用次数，达到上限时影响行数为 0
func (r *GormCouponRepository) IncrementTimesUsed(id uint) (int64, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ?", id).
		Where("usage_limit IS NULL OR usage_limit = 0 OR times_used < usage_limit").
		UpdateColumn("times_used", gorm.Expr("times_used + ?", 1))
	return result.RowsAffected, result.Error
}
