package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timestamp-store/internal/cache"
	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureSeq atomic.Int64

// storeFixture 一套基于 sqlite 的完整服务实例
type storeFixture struct {
	t        *testing.T
	db       *gorm.DB
	cfg      *config.Config
	store    *cache.MemorySessionStore
	gateway  *fakeGateway
	policy   CheckoutPolicy
	userRepo *repository.GormUserRepository

	offers    *OfferService
	coupons   *CouponService
	wallets   *WalletService
	carts     *CartService
	checkout  *CheckoutService
	orders    *OrderService
	referrals *ReferralService
	userAuth  *UserAuthService
	reports   *ReportService
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "store.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return buildStoreFixture(t, db)
}

// buildStoreFixture 在给定数据库上迁移表结构并装配服务
func buildStoreFixture(t *testing.T, db *gorm.DB) *storeFixture {
	t.Helper()
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	previous := models.DB
	models.DB = db
	t.Cleanup(func() { models.DB = previous })

	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = "test-user-secret"
	cfg.UserJWT.ExpireHours = 1
	cfg.Session.OTPExpireMinutes = 10
	cfg.Session.OTPLength = 6

	f := &storeFixture{
		t:       t,
		db:      db,
		cfg:     cfg,
		store:   cache.NewMemorySessionStore(),
		gateway: newFakeGateway(),
		policy:  DefaultCheckoutPolicy(),
	}
	f.userRepo = repository.NewUserRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	f.offers = NewOfferService(repository.NewOfferRepository(db), repository.NewProductRepository(db))
	f.coupons = NewCouponService(repository.NewCouponRepository(db), repository.NewCouponUsageRepository(db))
	f.wallets = NewWalletService(walletRepo)
	f.carts = NewCartService(repository.NewCartRepository(db), variantRepo, f.offers, f.policy)
	f.checkout = NewCheckoutService(f.carts, variantRepo, f.coupons, f.wallets, f.policy)
	f.referrals = NewReferralService(repository.NewReferralRepository(db), f.userRepo, f.wallets, decimal.NewFromInt(500))
	f.userAuth = NewUserAuthService(cfg, f.userRepo, f.wallets, f.referrals, nil, f.store)
	f.orders = NewOrderService(
		repository.NewOrderRepository(db),
		variantRepo,
		repository.NewCartRepository(db),
		f.userRepo,
		repository.NewPaymentRepository(db),
		f.checkout,
		f.coupons,
		f.wallets,
		f.gateway,
		f.policy,
		DefaultOrderPolicy(),
	)
	f.reports = NewReportService(repository.NewReportRepository(db), repository.NewOrderRepository(db), variantRepo)
	return f
}

func (f *storeFixture) session(userID uint) *CheckoutSession {
	return NewCheckoutSession(f.store, userID, 30*time.Minute)
}

func (f *storeFixture) createUser(email string) *models.User {
	f.t.Helper()
	n := fixtureSeq.Add(1)
	user := &models.User{
		Email:        email,
		PasswordHash: "unused",
		FirstName:    "Test",
		Status:       constants.UserStatusActive,
		IsActive:     true,
		IsVerified:   true,
		ReferralCode: fmt.Sprintf("REF%05d", n),
	}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *storeFixture) createAddress(userID uint) *models.Address {
	f.t.Helper()
	address := &models.Address{
		UserID:        userID,
		FullName:      "Asha Rao",
		Mobile:        "9876543210",
		StreetAddress: "12 MG Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		PostalCode:    "560001",
	}
	require.NoError(f.t, f.db.Create(address).Error)
	return address
}

func (f *storeFixture) createCategory(name string) *models.Category {
	f.t.Helper()
	category := &models.Category{Name: name, Slug: fmt.Sprintf("%s-%d", name, fixtureSeq.Add(1)), IsListed: true}
	require.NoError(f.t, f.db.Create(category).Error)
	return category
}

func (f *storeFixture) createVariant(categoryID *uint, price string, stock int) *models.ProductVariant {
	f.t.Helper()
	n := fixtureSeq.Add(1)
	product := &models.Product{
		Name:       fmt.Sprintf("Chronograph %d", n),
		Slug:       fmt.Sprintf("chronograph-%d", n),
		BasePrice:  models.MustMoney(price),
		IsListed:   true,
		CategoryID: categoryID,
	}
	require.NoError(f.t, f.db.Create(product).Error)
	variant := &models.ProductVariant{
		ProductID: product.ID,
		Colour:    "Black",
		Price:     models.MustMoney(price),
		Stock:     stock,
		IsListed:  true,
	}
	require.NoError(f.t, f.db.Create(variant).Error)
	return variant
}

func (f *storeFixture) createProductOffer(productID uint, percent string) *models.Offer {
	f.t.Helper()
	today := models.DateOnly(time.Now())
	offer := &models.Offer{
		Name:      fmt.Sprintf("Product offer %d", fixtureSeq.Add(1)),
		OfferType: constants.OfferTypeProduct,
		ProductID: &productID,
		Discount:  models.MustMoney(percent),
		StartDate: today.AddDate(0, 0, -1),
		EndDate:   today.AddDate(0, 0, 7),
		Status:    constants.OfferStatusActive,
	}
	require.NoError(f.t, f.db.Create(offer).Error)
	return offer
}

func (f *storeFixture) createCoupon(code, discountType, value, minPurchase string) *models.Coupon {
	f.t.Helper()
	today := models.DateOnly(time.Now())
	input := CreateCouponInput{
		Code:              code,
		DiscountType:      discountType,
		MinPurchaseAmount: decimal.RequireFromString(minPurchase),
		StartDate:         today.AddDate(0, 0, -1),
		EndDate:           today.AddDate(0, 1, 0),
		OneTimeUse:        true,
		IsActive:          true,
	}
	if discountType == constants.CouponTypePercentage {
		input.DiscountPercentage = decimal.RequireFromString(value)
	} else {
		input.DiscountAmount = decimal.RequireFromString(value)
	}
	coupon, err := f.coupons.CreateCoupon(input)
	require.NoError(f.t, err)
	return coupon
}

func (f *storeFixture) fundWallet(userID uint, amount string) {
	f.t.Helper()
	_, err := f.wallets.Credit(WalletChangeInput{UserID: userID, Amount: decimal.RequireFromString(amount), Description: "Top up"})
	require.NoError(f.t, err)
}

func (f *storeFixture) reloadVariant(id uint) *models.ProductVariant {
	f.t.Helper()
	var variant models.ProductVariant
	require.NoError(f.t, f.db.First(&variant, id).Error)
	return &variant
}

// loadVariant 带商品与分类读取规格
func (f *storeFixture) loadVariant(id uint) *models.ProductVariant {
	f.t.Helper()
	variant, err := repository.NewVariantRepository(f.db).GetByID(id)
	require.NoError(f.t, err)
	require.NotNil(f.t, variant)
	return variant
}

func (f *storeFixture) balance(userID uint) decimal.Decimal {
	f.t.Helper()
	balance, err := f.wallets.Balance(userID)
	require.NoError(f.t, err)
	return balance
}

// placeCODOrder 加购后以货到付款下单
func (f *storeFixture) placeCODOrder(userID uint, variantID uint, quantity int) *models.Order {
	f.t.Helper()
	_, err := f.carts.AddItem(userID, variantID, quantity)
	require.NoError(f.t, err)
	address := f.createAddress(userID)
	order, err := f.orders.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:        userID,
		Session:       f.session(userID),
		AddressID:     address.ID,
		PaymentMethod: constants.PaymentMethodCOD,
	})
	require.NoError(f.t, err)
	return order
}

// advanceOrder 后台按顺序推进订单状态
func (f *storeFixture) advanceOrder(orderNo string, statuses ...string) *models.Order {
	f.t.Helper()
	var order *models.Order
	for _, status := range statuses {
		var err error
		order, err = f.orders.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{OrderNo: orderNo, Status: status, AdminID: 1})
		require.NoError(f.t, err)
	}
	return order
}

// failDeletes 让指定表的删除返回 err，调用返回值恢复正常
func (f *storeFixture) failDeletes(table string, err error) func() {
	f.t.Helper()
	var enabled atomic.Bool
	enabled.Store(true)
	require.NoError(f.t, f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete_"+table, func(db *gorm.DB) {
		if enabled.Load() && db.Statement.Table == table {
			_ = db.AddError(err)
		}
	}))
	return func() { enabled.Store(false) }
}

// failCreates 让指定表的插入返回 err，调用返回值恢复正常
func (f *storeFixture) failCreates(table string, err error) func() {
	f.t.Helper()
	var enabled atomic.Bool
	enabled.Store(true)
	require.NoError(f.t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_create_"+table, func(db *gorm.DB) {
		if enabled.Load() && db.Statement.Table == table {
			_ = db.AddError(err)
		}
	}))
	return func() { enabled.Store(false) }
}

// countOrders 用户名下订单数
func (f *storeFixture) countOrders(userID uint) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

// fakeGateway 内存网关，记录创建的订单并按预置支付返回
type fakeGateway struct {
	seq          int
	orders       map[string]*GatewayOrder
	payments     map[string]*GatewayPayment
	signatureErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		orders:   make(map[string]*GatewayOrder),
		payments: make(map[string]*GatewayPayment),
	}
}

func (g *fakeGateway) Provider() string { return "fake" }

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	g.seq++
	order := &GatewayOrder{ID: fmt.Sprintf("order_%d", g.seq), Amount: amount, Currency: currency, Receipt: receipt}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) VerifySignature(_, _, _ string) error {
	return g.signatureErr
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*GatewayPayment, error) {
	payment, ok := g.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotCaptured
	}
	return payment, nil
}

// capture 模拟用户在网关完成支付
func (g *fakeGateway) capture(gatewayOrderID, paymentID string, amount decimal.Decimal) {
	g.payments[paymentID] = &GatewayPayment{
		ID:       paymentID,
		OrderID:  gatewayOrderID,
		Status:   constants.GatewayPaymentStatusCaptured,
		Amount:   amount,
		Currency: "INR",
		Captured: true,
		Raw:      map[string]interface{}{"id": paymentID},
	}
}
