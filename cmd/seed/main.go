package main

import (
	"time"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	demoUserEmail    = "demo@timestamp.store"
	demoUserPassword = "demo12345"
	demoWalletCredit = 10000
)

type seedProduct struct {
	Name      string
	Slug      string
	Category  string
	BasePrice string
	Variants  map[string]int
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.DB.Transaction(seed); err != nil {
		stdLog.Fatalf("Failed to seed database: %v", err)
	}

	if err := models.InitDefaultAdmin("admin", ""); err != nil {
		stdLog.Fatalf("Failed to create default admin: %v", err)
	}
	logger.Infow("seed_completed")
}

func seed(tx *gorm.DB) error {
	categories := map[string]*models.Category{
		"Men":    {Name: "Men", Slug: "men", Description: "Watches for men", IsListed: true},
		"Women":  {Name: "Women", Slug: "women", Description: "Watches for women", IsListed: true},
		"Unisex": {Name: "Unisex", Slug: "unisex", Description: "Everyday watches", IsListed: true},
	}
	for _, category := range categories {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(category).Error; err != nil {
			return err
		}
		if category.ID == 0 {
			if err := tx.Where("slug = ?", category.Slug).First(category).Error; err != nil {
				return err
			}
		}
	}

	products := []seedProduct{
		{Name: "Chronograph Steel", Slug: "chronograph-steel", Category: "Men", BasePrice: "8999.00", Variants: map[string]int{"Silver": 12, "Black": 8}},
		{Name: "Rosé Classic", Slug: "rose-classic", Category: "Women", BasePrice: "6499.00", Variants: map[string]int{"Rose Gold": 10, "Pearl": 3}},
		{Name: "Field Automatic", Slug: "field-automatic", Category: "Unisex", BasePrice: "12499.00", Variants: map[string]int{"Olive": 5, "Sand": 0}},
		{Name: "Everyday Quartz", Slug: "everyday-quartz", Category: "Unisex", BasePrice: "1499.00", Variants: map[string]int{"White": 40, "Navy": 25}},
	}
	productIDs := make(map[string]uint, len(products))
	for _, item := range products {
		categoryID := categories[item.Category].ID
		product := models.Product{
			Name:       item.Name,
			Slug:       item.Slug,
			BasePrice:  models.MustMoney(item.BasePrice),
			IsListed:   true,
			CategoryID: &categoryID,
		}
		if err := tx.Where("slug = ?", item.Slug).FirstOrCreate(&product).Error; err != nil {
			return err
		}
		productIDs[item.Slug] = product.ID
		for colour, stock := range item.Variants {
			variant := models.ProductVariant{
				ProductID: product.ID,
				Colour:    colour,
				Price:     models.MustMoney(item.BasePrice),
				Stock:     stock,
				IsListed:  true,
			}
			if err := tx.Where("product_id = ? AND colour = ?", product.ID, colour).FirstOrCreate(&variant).Error; err != nil {
				return err
			}
		}
	}

	today := models.DateOnly(time.Now())
	chronographID := productIDs["chronograph-steel"]
	womenID := categories["Women"].ID
	offers := []models.Offer{
		{
			Name:      "Chronograph launch week",
			OfferType: constants.OfferTypeProduct,
			ProductID: &chronographID,
			Discount:  models.MustMoney("15.00"),
			StartDate: today,
			EndDate:   today.AddDate(0, 0, 7),
			Status:    constants.OfferStatusActive,
		},
		{
			Name:       "Women's collection sale",
			OfferType:  constants.OfferTypeCategory,
			CategoryID: &womenID,
			Discount:   models.MustMoney("10.00"),
			StartDate:  today,
			EndDate:    today.AddDate(0, 1, 0),
			Status:     constants.OfferStatusActive,
		},
	}
	for i := range offers {
		if err := tx.Where("name = ?", offers[i].Name).FirstOrCreate(&offers[i]).Error; err != nil {
			return err
		}
	}

	usageLimit := 100
	coupons := []models.Coupon{
		{
			Code:              "WELCOME500",
			Description:       "Flat 500 off on orders above 5000",
			DiscountType:      constants.CouponTypeFixed,
			DiscountAmount:    models.MustMoney("500.00"),
			MinPurchaseAmount: models.MustMoney("5000.00"),
			StartDate:         today,
			EndDate:           today.AddDate(0, 3, 0),
			UsageLimit:        &usageLimit,
			OneTimeUse:        true,
			IsActive:          true,
		},
		{
			Code:               "FESTIVE10",
			Description:        "10 percent off, no minimum",
			DiscountType:       constants.CouponTypePercentage,
			DiscountPercentage: models.MustMoney("10.00"),
			StartDate:          today,
			EndDate:            today.AddDate(0, 1, 0),
			OneTimeUse:         false,
			IsActive:           true,
		},
	}
	couponRepo := repository.NewCouponRepository(tx)
	for i := range coupons {
		existing, err := couponRepo.GetByCode(coupons[i].Code)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := couponRepo.Create(&coupons[i]); err != nil {
			return err
		}
	}
	return seedDemoUser(tx)
}

// seedDemoUser 创建已验证的演示用户并为钱包充值，已存在时跳过
func seedDemoUser(tx *gorm.DB) error {
	userRepo := repository.NewUserRepository(tx)
	existing, err := userRepo.GetByEmail(demoUserEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(demoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:        demoUserEmail,
		PasswordHash: string(hash),
		FirstName:    "Demo",
		LastName:     "Shopper",
		Status:       constants.UserStatusActive,
		IsActive:     true,
		IsVerified:   true,
		ReferralCode: "DEMO0001",
	}
	if err := userRepo.Create(user); err != nil {
		return err
	}
	wallets := service.NewWalletService(repository.NewWalletRepository(tx))
	if _, err := wallets.CreditInTx(tx, service.WalletChangeInput{
		UserID:      user.ID,
		Amount:      decimal.NewFromInt(demoWalletCredit),
		Description: "Demo wallet credit",
	}); err != nil {
		return err
	}
	logger.Infow("seed_demo_user_created", "email", demoUserEmail, "wallet_credit", demoWalletCredit)
	return nil
}
