package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/provider"
	"github.com/timestamp-store/internal/queue"
	"github.com/timestamp-store/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOfferExpire, c.handleOfferExpire)
	mux.HandleFunc(queue.TaskAccountCleanup, c.handleAccountCleanup)
	mux.HandleFunc(queue.TaskReferralCreditReward, c.handleReferralReward)
}

func (c *Consumer) handleOfferExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.OfferService == nil {
		logger.Debugw("worker_offer_expire_skip_nil")
		return nil
	}
	var payload queue.OfferExpirePayload
	if task != nil && len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_offer_expire_unmarshal_failed", "error", err)
			return err
		}
	}
	expired, err := c.OfferService.ExpireOldOffers(c.now())
	if err != nil {
		return err
	}
	logger.Debugw("worker_offer_expire_done", "expired", expired, "triggered_by", payload.TriggeredBy)
	return nil
}

func (c *Consumer) handleAccountCleanup(_ context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.UserAuthService == nil {
		logger.Debugw("worker_account_cleanup_skip_nil")
		return nil
	}
	var payload queue.AccountCleanupPayload
	if task != nil && len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_account_cleanup_unmarshal_failed", "error", err)
			return err
		}
	}
	deleted, err := c.UserAuthService.CleanupUnverified(c.now())
	if err != nil {
		logger.Warnw("worker_account_cleanup_failed", "error", err)
		return err
	}
	logger.Debugw("worker_account_cleanup_done", "deleted", deleted, "triggered_by", payload.TriggeredBy)
	return nil
}

func (c *Consumer) handleReferralReward(_ context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || c.ReferralService == nil || task == nil {
		logger.Debugw("worker_referral_reward_skip_nil", "task_nil", task == nil)
		return nil
	}
	var payload queue.ReferralRewardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_reward_unmarshal_failed", "error", err)
		return err
	}
	if payload.ReferrerID == 0 || payload.ReferredUserID == 0 {
		logger.Debugw("worker_referral_reward_skip_invalid_payload",
			"referrer_id", payload.ReferrerID,
			"referred_user_id", payload.ReferredUserID,
		)
		return nil
	}
	_, err := c.ReferralService.CreateReward(payload.ReferrerID, payload.ReferredUserID)
	if err == nil {
		return nil
	}
	// 业务错误重试也不会成功，直接丢弃
	if service.KindOf(err) != "" && !errors.Is(err, service.ErrConflictRetry) {
		logger.Warnw("worker_referral_reward_rejected",
			"referrer_id", payload.ReferrerID,
			"referred_user_id", payload.ReferredUserID,
			"error", err,
		)
		return nil
	}
	logger.Warnw("worker_referral_reward_failed",
		"referrer_id", payload.ReferrerID,
		"referred_user_id", payload.ReferredUserID,
		"error", err,
	)
	return err
}
