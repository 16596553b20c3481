package service

import (
	"fmt"
	"time"

	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralService 邀请返现服务
type ReferralService struct {
	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
	wallets      *WalletService
	rewardAmount decimal.Decimal
	now          func() time.Time
}

// NewReferralService 创建邀请返现服务
func NewReferralService(referralRepo repository.ReferralRepository, userRepo repository.UserRepository, wallets *WalletService, rewardAmount decimal.Decimal) *ReferralService {
	return &ReferralService{
		referralRepo: referralRepo,
		userRepo:     userRepo,
		wallets:      wallets,
		rewardAmount: rewardAmount.Round(2),
		now:          time.Now,
	}
}

// CreateReward 为邀请关系入账一次返现，重复调用不会重复入账
func (s *ReferralService) CreateReward(referrerID, referredUserID uint) (*models.ReferralReward, error) {
	if referrerID == 0 || referredUserID == 0 {
		return nil, ErrUserNotFound
	}
	if referrerID == referredUserID {
		return nil, ErrSelfReferral
	}
	referrer, err := s.userRepo.GetByID(referrerID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrUserNotFound
	}

	var reward *models.ReferralReward
	credited := false
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.referralRepo.WithTx(tx)
		existing, err := repo.GetByPairForUpdate(referrerID, referredUserID)
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &models.ReferralReward{
				ReferrerID:     referrerID,
				ReferredUserID: referredUserID,
				RewardAmount:   models.NewMoneyFromDecimal(s.rewardAmount),
				CreatedAt:      s.now(),
			}
			if err := repo.Create(existing); err != nil {
				return normalizePersistenceError(err)
			}
		}
		reward = existing
		if existing.IsCredited || !existing.RewardAmount.Decimal.IsPositive() {
			return nil
		}
		if _, err := s.wallets.CreditInTx(tx, WalletChangeInput{
			UserID:      referrerID,
			Amount:      existing.RewardAmount.Decimal,
			Description: fmt.Sprintf("Referral reward for inviting user #%d", referredUserID),
		}); err != nil {
			return err
		}
		now := s.now()
		existing.IsCredited = true
		existing.CreditedAt = &now
		credited = true
		return repo.Update(existing)
	})
	if err != nil {
		return nil, err
	}
	if credited {
		logger.Infow("referral_reward_credited",
			"referrer_id", referrerID,
			"referred_user_id", referredUserID,
			"amount", reward.RewardAmount.String(),
		)
	}
	return reward, nil
}

// ListRewards 邀请人的返现记录
func (s *ReferralService) ListRewards(referrerID uint) ([]models.ReferralReward, error) {
	return s.referralRepo.ListByReferrer(referrerID)
}
