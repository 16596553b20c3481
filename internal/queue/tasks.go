package queue

import (
	"encoding/json"

	"github.com/timestamp-store/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOfferExpire 过期活动停用任务
	TaskOfferExpire = constants.TaskOfferExpire
	// TaskAccountCleanup 清理未验证账号任务
	TaskAccountCleanup = constants.TaskAccountCleanup
	// TaskReferralCreditReward 邀请返现入账任务
	TaskReferralCreditReward = constants.TaskReferralCreditReward
)

// OfferExpirePayload 过期活动任务载荷
type OfferExpirePayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// AccountCleanupPayload 清理未验证账号任务载荷
type AccountCleanupPayload struct {
	TriggeredBy string `json:"triggered_by"`
}

// ReferralRewardPayload 邀请返现任务载荷
type ReferralRewardPayload struct {
	ReferrerID     uint `json:"referrer_id"`
	ReferredUserID uint `json:"referred_user_id"`
}

// NewOfferExpireTask 创建过期活动任务
func NewOfferExpireTask(payload OfferExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfferExpire, body), nil
}

// NewAccountCleanupTask 创建清理未验证账号任务
func NewAccountCleanupTask(payload AccountCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccountCleanup, body), nil
}

// NewReferralRewardTask 创建邀请返现任务
func NewReferralRewardTask(payload ReferralRewardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralCreditReward, body), nil
}
