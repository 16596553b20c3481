package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                            // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`               // 邮箱（小写）
	PasswordHash string         `gorm:"not null" json:"-"`                               // 密码哈希（不返回给前端）
	FirstName    string         `gorm:"type:varchar(50);not null" json:"first_name"`     // 名
	LastName     string         `gorm:"type:varchar(50);not null" json:"last_name"`      // 姓
	Phone        string         `gorm:"type:varchar(20)" json:"phone,omitempty"`         // 手机号
	Status       string         `gorm:"type:varchar(20);default:'active'" json:"status"` // 账号状态
	IsActive     bool           `gorm:"not null;default:false;index" json:"is_active"`   // 是否激活
	IsVerified   bool           `gorm:"not null;default:false;index" json:"is_verified"` // 是否完成 OTP 验证
	OTPCreatedAt *time.Time     `gorm:"index" json:"-"`                                  // OTP 生成时间
	ReferralCode string         `gorm:"type:varchar(20);uniqueIndex" json:"referral_code"`
	ReferredByID *uint          `gorm:"index" json:"referred_by_id,omitempty"`    // 邀请人
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`              // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at"`                            // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                  // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// FullName 返回展示用姓名
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Address 收货地址
type Address struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	UserID        uint           `gorm:"index;not null" json:"user_id"`
	FullName      string         `gorm:"type:varchar(100);not null" json:"full_name"`
	Mobile        string         `gorm:"type:varchar(15);not null" json:"mobile"`
	StreetAddress string         `gorm:"type:varchar(255);not null" json:"street_address"`
	City          string         `gorm:"type:varchar(100);not null" json:"city"`
	State         string         `gorm:"type:varchar(100);not null" json:"state"`
	PostalCode    string         `gorm:"type:varchar(20);not null" json:"postal_code"`
	IsDefault     bool           `gorm:"not null;default:false" json:"is_default"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}
