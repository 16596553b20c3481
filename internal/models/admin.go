package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 后台管理员
type Admin struct {
	ID           uint           `gorm:"primarykey" json:"id"`                         // 主键
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`         // 登录名
	PasswordHash string         `gorm:"not null" json:"-"`                            // 密码哈希
	IsSuper      bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员跳过 RBAC 校验
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`                  // 修改密码后递增，使旧 Token 失效
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
