package worker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/provider"
	"github.com/timestamp-store/internal/queue"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) *Consumer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	wallets := service.NewWalletService(repository.NewWalletRepository(db))
	container := &provider.Container{
		UserRepo:        userRepo,
		OfferRepo:       repository.NewOfferRepository(db),
		WalletService:   wallets,
		ReferralService: service.NewReferralService(repository.NewReferralRepository(db), userRepo, wallets, decimal.NewFromInt(500)),
		OfferService:    service.NewOfferService(repository.NewOfferRepository(db), repository.NewProductRepository(db)),
	}
	return NewConsumer(container)
}

func createWorkerUser(t *testing.T, email, code string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", FirstName: "Test", IsActive: true, IsVerified: true, ReferralCode: code}
	require.NoError(t, models.DB.Create(user).Error)
	return user
}

func TestHandleReferralRewardCreditsOnce(t *testing.T) {
	consumer := setupWorkerTest(t)
	referrer := createWorkerUser(t, "referrer@example.com", "REFA0001")
	referred := createWorkerUser(t, "referred@example.com", "REFB0002")

	task, err := queue.NewReferralRewardTask(queue.ReferralRewardPayload{ReferrerID: referrer.ID, ReferredUserID: referred.ID})
	require.NoError(t, err)

	require.NoError(t, consumer.handleReferralReward(context.Background(), task))
	require.NoError(t, consumer.handleReferralReward(context.Background(), task))

	balance, err := consumer.WalletService.Balance(referrer.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)), "balance %s", balance)
}

func TestHandleReferralRewardDropsBusinessErrors(t *testing.T) {
	consumer := setupWorkerTest(t)
	user := createWorkerUser(t, "self@example.com", "SELF0001")

	selfTask, err := queue.NewReferralRewardTask(queue.ReferralRewardPayload{ReferrerID: user.ID, ReferredUserID: user.ID})
	require.NoError(t, err)
	assert.NoError(t, consumer.handleReferralReward(context.Background(), selfTask))

	missingTask, err := queue.NewReferralRewardTask(queue.ReferralRewardPayload{ReferrerID: 999, ReferredUserID: user.ID})
	require.NoError(t, err)
	assert.NoError(t, consumer.handleReferralReward(context.Background(), missingTask))

	zeroTask, err := queue.NewReferralRewardTask(queue.ReferralRewardPayload{})
	require.NoError(t, err)
	assert.NoError(t, consumer.handleReferralReward(context.Background(), zeroTask))
}

func TestHandleReferralRewardRejectsBadPayload(t *testing.T) {
	consumer := setupWorkerTest(t)
	task := asynq.NewTask(queue.TaskReferralCreditReward, []byte("{not-json"))
	assert.Error(t, consumer.handleReferralReward(context.Background(), task))
}

func TestHandleOfferExpireDeactivatesEndedOffers(t *testing.T) {
	consumer := setupWorkerTest(t)
	today := models.DateOnly(time.Now())
	consumer.now = func() time.Time { return today }

	productID := uint(1)
	ended := &models.Offer{Name: "ended", OfferType: "product", ProductID: &productID, Discount: models.MustMoney("10"), StartDate: today.AddDate(0, 0, -10), EndDate: today.AddDate(0, 0, -1), Status: "active"}
	running := &models.Offer{Name: "running", OfferType: "product", ProductID: &productID, Discount: models.MustMoney("10"), StartDate: today.AddDate(0, 0, -1), EndDate: today.AddDate(0, 0, 3), Status: "active"}
	require.NoError(t, models.DB.Create(ended).Error)
	require.NoError(t, models.DB.Create(running).Error)

	require.NoError(t, consumer.handleOfferExpire(context.Background(), nil))

	var reloaded []models.Offer
	require.NoError(t, models.DB.Order("id asc").Find(&reloaded).Error)
	require.Len(t, reloaded, 2)
	assert.Equal(t, "expired", reloaded[0].Status)
	assert.Equal(t, "active", reloaded[1].Status)
}

func TestHandlersSkipNilContainer(t *testing.T) {
	consumer := NewConsumer(nil)
	assert.NoError(t, consumer.handleOfferExpire(context.Background(), nil))
	assert.NoError(t, consumer.handleAccountCleanup(context.Background(), nil))
	assert.NoError(t, consumer.handleReferralReward(context.Background(), nil))
}

func TestIntervalOrDefault(t *testing.T) {
	assert.Equal(t, time.Hour, intervalOrDefault(0, time.Hour))
	assert.Equal(t, 5*time.Minute, intervalOrDefault(5, time.Hour))
}

func TestSchedulerSweepsMemorySessions(t *testing.T) {
	store := cache.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "checkout:1:coupon", "SAVE10", time.Millisecond))
	require.NoError(t, store.Set(ctx, "checkout:2:coupon", "SAVE20", time.Hour))
	time.Sleep(5 * time.Millisecond)

	scheduler, err := NewScheduler(config.JobsConfig{}, NewConsumer(&provider.Container{SessionStore: store}))
	require.NoError(t, err)
	require.NoError(t, scheduler.sweepSessions())

	var code string
	found, err := store.Get(ctx, "checkout:2:coupon", &code)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, store.Sweep())

	nilScheduler, err := NewScheduler(config.JobsConfig{}, NewConsumer(nil))
	require.NoError(t, err)
	assert.NoError(t, nilScheduler.sweepSessions())
}
