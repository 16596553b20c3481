package models

import "time"

// ReferralReward 邀请返现记录，(邀请人, 被邀请人) 唯一
type ReferralReward struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	ReferrerID     uint       `gorm:"not null;uniqueIndex:idx_referral_pair" json:"referrer_id"`
	ReferredUserID uint       `gorm:"not null;uniqueIndex:idx_referral_pair" json:"referred_user_id"`
	RewardAmount   Money      `gorm:"type:decimal(10,2);not null" json:"reward_amount"`
	IsCredited     bool       `gorm:"not null;default:false;index" json:"is_credited"`
	CreditedAt     *time.Time `json:"credited_at"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ReferralReward) TableName() string {
	return "referral_rewards"
}
