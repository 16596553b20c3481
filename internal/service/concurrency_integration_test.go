//go:build integration

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newPostgresFixture(t *testing.T) *storeFixture {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("timestamp_store"),
		tcpostgres.WithUsername("store"),
		tcpostgres.WithPassword("store"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	return buildStoreFixture(t, db)
}

func TestConcurrentWalletDebitsNeverOverdraw(t *testing.T) {
	f := newPostgresFixture(t)
	user := f.createUser("concurrent-wallet@example.com")
	f.fundWallet(user.ID, "1000")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.wallets.Debit(WalletChangeInput{UserID: user.ID, Amount: dec("150"), Description: fmt.Sprintf("debit %d", n)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrWalletInsufficientBalance):
				rejected++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 4, rejected)
	assertDecimal(t, "100", f.balance(user.ID))
	check, err := f.wallets.VerifyLedger(user.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestConcurrentOrdersRespectStock(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	variant := f.createVariant(nil, "5000", 1)

	const buyers = 5
	inputs := make([]PlaceOrderInput, 0, buyers)
	for i := 0; i < buyers; i++ {
		user := f.createUser(fmt.Sprintf("stock-%d@example.com", i))
		_, err := f.carts.AddItem(user.ID, variant.ID, 1)
		require.NoError(t, err)
		address := f.createAddress(user.ID)
		inputs = append(inputs, PlaceOrderInput{
			UserID:        user.ID,
			Session:       f.session(user.ID),
			AddressID:     address.ID,
			PaymentMethod: constants.PaymentMethodCOD,
		})
	}

	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.PlaceOrder(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 0, f.reloadVariant(variant.ID).Stock)
}

func TestConcurrentCouponRedemptionHonoursUsageLimit(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	variant := f.createVariant(nil, "2000", 10)
	limit := 1
	today := models.DateOnly(time.Now())
	_, err := f.coupons.CreateCoupon(CreateCouponInput{
		Code:           "SINGLE",
		DiscountType:   constants.CouponTypeFixed,
		DiscountAmount: dec("300"),
		StartDate:      today,
		EndDate:        today.AddDate(0, 0, 7),
		UsageLimit:     &limit,
		OneTimeUse:     false,
		IsActive:       true,
	})
	require.NoError(t, err)

	const buyers = 4
	inputs := make([]PlaceOrderInput, 0, buyers)
	for i := 0; i < buyers; i++ {
		user := f.createUser(fmt.Sprintf("coupon-%d@example.com", i))
		session := f.session(user.ID)
		_, err := f.carts.AddItem(user.ID, variant.ID, 1)
		require.NoError(t, err)
		_, err = f.checkout.ApplyCoupon(ctx, user.ID, session, "SINGLE", SummaryOptions{})
		require.NoError(t, err)
		address := f.createAddress(user.ID)
		inputs = append(inputs, PlaceOrderInput{UserID: user.ID, Session: session, AddressID: address.ID, PaymentMethod: constants.PaymentMethodCOD})
	}

	errs := make([]error, buyers)
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orders.PlaceOrder(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, ErrCouponUsageLimitReached)
	}
	assert.Equal(t, 1, placed)

	coupon, err := f.coupons.couponRepo.GetByCode("SINGLE")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.TimesUsed)
	assert.Equal(t, 10-placed, f.reloadVariant(variant.ID).Stock)
}

func TestItemCancelAndStatusUpdateSerializeOnOrder(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	const rounds = 10
	for round := 0; round < rounds; round++ {
		user := f.createUser(fmt.Sprintf("lock-order-%d@example.com", round))
		dial := f.createVariant(nil, "1500", 2)
		strap := f.createVariant(nil, "500", 2)
		_, err := f.carts.AddItem(user.ID, dial.ID, 1)
		require.NoError(t, err)
		order := f.placeCODOrder(user.ID, strap.ID, 1)
		items := loadOrderItems(t, f, user.ID, order.OrderNo)
		require.Len(t, items, 2)
		var strapItem models.OrderItem
		for _, item := range items {
			if item.VariantID == strap.ID {
				strapItem = item
			}
		}

		var (
			wg                   sync.WaitGroup
			cancelErr, updateErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancelErr = f.orders.CancelItem(ctx, user.ID, strapItem.ID, "Wrong strap")
		}()
		go func() {
			defer wg.Done()
			_, updateErr = f.orders.UpdateOrderStatus(ctx, UpdateOrderStatusInput{OrderNo: order.OrderNo, Status: constants.OrderStatusConfirmed, AdminID: 1})
		}()
		wg.Wait()

		require.NoError(t, cancelErr, "round %d", round)
		require.NoError(t, updateErr, "round %d", round)
		assert.Equal(t, 2, f.reloadVariant(strap.ID).Stock)
		assert.Equal(t, 1, f.reloadVariant(dial.ID).Stock)
	}
}
