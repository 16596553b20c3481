package service

import (
	"github.com/timestamp-store/internal/constants"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceQuote 单件商品的定价结果
type PriceQuote struct {
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	HasOffer           bool            `json:"has_offer"`
	OfferType          string          `json:"offer_type"`
	OfferID            *uint           `json:"offer_id,omitempty"`
}

// ApplyPricing 按折扣百分比计算折后价，折扣额四舍五入到分
func ApplyPricing(original, percentage decimal.Decimal) PriceQuote {
	original = original.Round(2)
	if percentage.LessThanOrEqual(decimal.Zero) {
		return PriceQuote{
			OriginalPrice:      original,
			DiscountPercentage: decimal.Zero,
			DiscountAmount:     decimal.Zero,
			FinalPrice:         original,
		}
	}
	if percentage.GreaterThan(hundred) {
		percentage = hundred
	}
	discount := original.Mul(percentage).Div(hundred).Round(2)
	return PriceQuote{
		OriginalPrice:      original,
		DiscountPercentage: percentage,
		DiscountAmount:     discount,
		FinalPrice:         original.Sub(discount),
		HasOffer:           true,
	}
}

// quoteWithResolution 将活动解析结果应用到原价上
func quoteWithResolution(original decimal.Decimal, resolution OfferResolution) PriceQuote {
	quote := ApplyPricing(original, resolution.DiscountPercentage)
	quote.OfferType = constants.OfferTypeNone
	if quote.HasOffer {
		quote.OfferType = resolution.OfferType
		if resolution.Offer != nil {
			id := resolution.Offer.ID
			quote.OfferID = &id
		}
	}
	return quote
}

// LineTotal 行合计（折后价 × 数量）
func (q PriceQuote) LineTotal(quantity int) decimal.Decimal {
	return q.FinalPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// LineDiscount 行折扣合计
func (q PriceQuote) LineDiscount(quantity int) decimal.Decimal {
	return q.DiscountAmount.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
