package service

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
)

var maxOfferDiscount = decimal.NewFromInt(90)

// OfferService 限时折扣活动服务
type OfferService struct {
	offerRepo   repository.OfferRepository
	productRepo repository.ProductRepository
}

// NewOfferService 创建活动服务
func NewOfferService(offerRepo repository.OfferRepository, productRepo repository.ProductRepository) *OfferService {
	return &OfferService{
		offerRepo:   offerRepo,
		productRepo: productRepo,
	}
}

// OfferResolution 商品最优活动解析结果
type OfferResolution struct {
	OfferType          string          `json:"offer_type"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Offer              *models.Offer   `json:"offer,omitempty"`
}

// OfferInput 活动创建/更新输入
type OfferInput struct {
	Name        string
	OfferType   string
	ProductID   *uint
	CategoryID  *uint
	Discount    decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	Description string
}

// OfferTypeStatistics 单类活动统计
type OfferTypeStatistics struct {
	Active   int64 `json:"active"`
	Upcoming int64 `json:"upcoming"`
	Expired  int64 `json:"expired"`
}

// OfferStatistics 活动统计（后台看板）
type OfferStatistics struct {
	Product  OfferTypeStatistics `json:"product"`
	Category OfferTypeStatistics `json:"category"`
}

func noOffer() OfferResolution {
	return OfferResolution{OfferType: constants.OfferTypeNone, DiscountPercentage: decimal.Zero}
}

// ResolveBestOffer 在商品活动与分类活动中选择折扣更大的一个，相同折扣优先商品活动
func (s *OfferService) ResolveBestOffer(product *models.Product, today time.Time) OfferResolution {
	if product == nil {
		return noOffer()
	}
	day := models.DateOnly(today)

	var productOffer *models.Offer
	if candidate, err := s.offerRepo.FindCurrentProductOffer(product.ID, day); err != nil {
		logger.Warnw("offer_lookup_failed", "product_id", product.ID, "scope", constants.OfferTypeProduct, "error", err)
	} else if candidate != nil && candidate.IsActiveOn(day) {
		productOffer = candidate
	}

	var categoryOffer *models.Offer
	if product.CategoryID != nil {
		if candidate, err := s.offerRepo.FindCurrentCategoryOffer(*product.CategoryID, day); err != nil {
			logger.Warnw("offer_lookup_failed", "product_id", product.ID, "scope", constants.OfferTypeCategory, "error", err)
		} else if candidate != nil && candidate.IsActiveOn(day) {
			categoryOffer = candidate
		}
	}

	return pickBestOffer(productOffer, categoryOffer)
}

// pickBestOffer 折扣大者胜出，平局时商品活动优先
func pickBestOffer(productOffer, categoryOffer *models.Offer) OfferResolution {
	switch {
	case productOffer == nil && categoryOffer == nil:
		return noOffer()
	case categoryOffer == nil:
		return resolutionOf(constants.OfferTypeProduct, productOffer)
	case productOffer == nil:
		return resolutionOf(constants.OfferTypeCategory, categoryOffer)
	case categoryOffer.Discount.Decimal.GreaterThan(productOffer.Discount.Decimal):
		return resolutionOf(constants.OfferTypeCategory, categoryOffer)
	default:
		return resolutionOf(constants.OfferTypeProduct, productOffer)
	}
}

func resolutionOf(offerType string, offer *models.Offer) OfferResolution {
	return OfferResolution{
		OfferType:          offerType,
		DiscountPercentage: offer.Discount.Decimal,
		Offer:              offer,
	}
}

// QuoteVariant 解析活动并计算规格售价，variant 需预加载 Product
func (s *OfferService) QuoteVariant(variant *models.ProductVariant, today time.Time) PriceQuote {
	if variant == nil {
		return ApplyPricing(decimal.Zero, decimal.Zero)
	}
	return quoteWithResolution(variant.Price.Decimal, s.ResolveBestOffer(variant.Product, today))
}

// ExpireOldOffers 将结束日期早于今天的活动标记为过期，可重复执行
func (s *OfferService) ExpireOldOffers(today time.Time) (int64, error) {
	affected, err := s.offerRepo.ExpireEndedBefore(models.DateOnly(today))
	if err != nil {
		logger.Errorw("offer_expire_batch_failed", "error", err)
		return 0, err
	}
	logger.Infow("offer_expire_batch_done", "expired", affected, "day", models.DateOnly(today).Format("2006-01-02"))
	return affected, nil
}

// Statistics 按活动类型统计进行中/未开始/已过期数量
func (s *OfferService) Statistics(today time.Time) (*OfferStatistics, error) {
	day := models.DateOnly(today)
	product, err := s.offerRepo.CountByWindow(constants.OfferTypeProduct, day)
	if err != nil {
		return nil, err
	}
	category, err := s.offerRepo.CountByWindow(constants.OfferTypeCategory, day)
	if err != nil {
		return nil, err
	}
	return &OfferStatistics{
		Product:  OfferTypeStatistics(product),
		Category: OfferTypeStatistics(category),
	}, nil
}

// ListOffers 后台活动列表
func (s *OfferService) ListOffers(filter repository.OfferListFilter) ([]models.Offer, int64, error) {
	return s.offerRepo.List(filter)
}

// GetOffer 获取活动
func (s *OfferService) GetOffer(id uint) (*models.Offer, error) {
	offer, err := s.offerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

// CreateOffer 创建活动
func (s *OfferService) CreateOffer(input OfferInput) (*models.Offer, error) {
	offer := &models.Offer{Status: constants.OfferStatusActive}
	if err := s.applyOfferInput(offer, input); err != nil {
		return nil, err
	}
	if err := s.offerRepo.Create(offer); err != nil {
		return nil, normalizePersistenceError(err)
	}
	logger.Infow("offer_created", "offer_id", offer.ID, "offer_type", offer.OfferType, "discount", offer.Discount.String())
	return offer, nil
}

// UpdateOffer 更新活动内容（状态单独修改）
func (s *OfferService) UpdateOffer(id uint, input OfferInput) (*models.Offer, error) {
	offer, err := s.GetOffer(id)
	if err != nil {
		return nil, err
	}
	if err := s.applyOfferInput(offer, input); err != nil {
		return nil, err
	}
	if err := s.offerRepo.Update(offer); err != nil {
		return nil, normalizePersistenceError(err)
	}
	return offer, nil
}

// SetStatus 手动启用/停用活动，已结束的活动不能重新启用
func (s *OfferService) SetStatus(id uint, status string, today time.Time) (*models.Offer, error) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != constants.OfferStatusActive && status != constants.OfferStatusInactive {
		return nil, ErrOfferInvalid.WithMessage("Offer status must be active or inactive")
	}
	offer, err := s.GetOffer(id)
	if err != nil {
		return nil, err
	}
	if status == constants.OfferStatusActive && models.DateOnly(offer.EndDate).Before(models.DateOnly(today)) {
		return nil, ErrOfferInvalid.WithMessage("Offer has already ended and cannot be activated")
	}
	offer.Status = status
	if err := s.offerRepo.Update(offer); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *OfferService) applyOfferInput(offer *models.Offer, input OfferInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrOfferInvalid.WithMessage("Offer name is required")
	}
	if input.Discount.LessThanOrEqual(decimal.Zero) || input.Discount.GreaterThan(maxOfferDiscount) {
		return ErrOfferInvalid.WithMessage("Discount must be between 0 and 90 percent")
	}
	start := models.DateOnly(input.StartDate)
	end := models.DateOnly(input.EndDate)
	if input.StartDate.IsZero() || input.EndDate.IsZero() || end.Before(start) {
		return ErrOfferInvalid.WithMessage("End date must not be before start date")
	}

	offerType := strings.TrimSpace(strings.ToLower(input.OfferType))
	switch offerType {
	case constants.OfferTypeProduct:
		if input.ProductID == nil || input.CategoryID != nil {
			return ErrOfferInvalid.WithMessage("Product offers must reference exactly one product")
		}
		product, err := s.productRepo.GetByID(*input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
	case constants.OfferTypeCategory:
		if input.CategoryID == nil || input.ProductID != nil {
			return ErrOfferInvalid.WithMessage("Category offers must reference exactly one category")
		}
		category, err := s.productRepo.GetCategoryByID(*input.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return ErrCategoryNotFound
		}
	default:
		return ErrOfferInvalid.WithMessage("Offer type must be product or category")
	}

	offer.Name = name
	offer.OfferType = offerType
	offer.ProductID = input.ProductID
	offer.CategoryID = input.CategoryID
	offer.Discount = models.NewMoneyFromDecimal(input.Discount)
	offer.StartDate = start
	offer.EndDate = end
	offer.Description = strings.TrimSpace(input.Description)
	return nil
}
