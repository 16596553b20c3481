package repository

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByReferralCode(code string) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error
	DeleteExpiredUnverified(createdBefore time.Time) (int64, error)
	GetAddressForUser(userID, addressID uint) (*models.Address, error)
	CreateAddress(address *models.Address) error
	ListAddresses(userID uint) ([]models.Address, error)
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.User](r.db.Where("id = ?", id))
}

// GetByEmail 根据邮箱获取用户（邮箱统一小写）
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return firstOrNil[models.User](r.db.Where("email = ?", email))
}

// GetByReferralCode 根据邀请码获取用户
func (r *GormUserRepository) GetByReferralCode(code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	return firstOrNil[models.User](r.db.Where("referral_code = ?", code))
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update 更新用户
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// DeleteExpiredUnverified 物理删除 OTP 已过期的未激活账号
func (r *GormUserRepository) DeleteExpiredUnverified(createdBefore time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("is_active = ? AND is_verified = ?", false, false).
		Where("otp_created_at IS NOT NULL AND otp_created_at < ?", createdBefore).
		Delete(&models.User{})
	return result.RowsAffected, result.Error
}

// GetAddressForUser 获取属于该用户的地址
func (r *GormUserRepository) GetAddressForUser(userID, addressID uint) (*models.Address, error) {
	if userID == 0 || addressID == 0 {
		return nil, nil
	}
	return firstOrNil[models.Address](r.db.Where("id = ? AND user_id = ?", addressID, userID))
}

// CreateAddress 创建地址
func (r *GormUserRepository) CreateAddress(address *models.Address) error {
	return r.db.Create(address).Error
}

// ListAddresses 用户地址列表（默认地址在前）
func (r *GormUserRepository) ListAddresses(userID uint) ([]models.Address, error) {
	var addresses []models.Address
	if err := r.db.Where("user_id = ?", userID).Order("is_default desc, id desc").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}
