package repository

import (
	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 邀请返现数据访问接口
type ReferralRepository interface {
	Create(reward *models.ReferralReward) error
	GetByPair(referrerID, referredUserID uint) (*models.ReferralReward, error)
	GetByPairForUpdate(referrerID, referredUserID uint) (*models.ReferralReward, error)
	Update(reward *models.ReferralReward) error
	ListByReferrer(referrerID uint) ([]models.ReferralReward, error)
	WithTx(tx *gorm.DB) *GormReferralRepository
}

// GormReferralRepository GORM 实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建邀请返现仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) *GormReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Create 创建返现记录
func (r *GormReferralRepository) Create(reward *models.ReferralReward) error {
	return r.db.Create(reward).Error
}

// GetByPair 按邀请关系获取
func (r *GormReferralRepository) GetByPair(referrerID, referredUserID uint) (*models.ReferralReward, error) {
	return firstOrNil[models.ReferralReward](r.db.Where("referrer_id = ? AND referred_user_id = ?", referrerID, referredUserID))
}

// GetByPairForUpdate 加锁按邀请关系获取
func (r *GormReferralRepository) GetByPairForUpdate(referrerID, referredUserID uint) (*models.ReferralReward, error) {
	return firstOrNil[models.ReferralReward](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referrer_id = ? AND referred_user_id = ?", referrerID, referredUserID))
}

// Update 保存返现记录
func (r *GormReferralRepository) Update(reward *models.ReferralReward) error {
	return r.db.Save(reward).Error
}

// ListByReferrer 邀请人的返现记录
func (r *GormReferralRepository) ListByReferrer(referrerID uint) ([]models.ReferralReward, error) {
	var rows []models.ReferralReward
	err := r.db.Where("referrer_id = ?", referrerID).Order("created_at desc").Find(&rows).Error
	return rows, err
}
