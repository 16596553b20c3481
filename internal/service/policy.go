package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutPolicy 结算规则（运费门槛、货到付款上限、单品数量上限）
type CheckoutPolicy struct {
	Currency              string
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	CODLimit              decimal.Decimal
	MaxQuantityPerProduct int
}

// OrderPolicy 订单规则（订单号前缀、退货窗口、文本长度）
type OrderPolicy struct {
	IDPrefix              string
	ReturnWindow          time.Duration
	ReturnReasonMinLength int
	HistoryNotesMaxLength int
}

// DefaultCheckoutPolicy 默认结算规则
func DefaultCheckoutPolicy() CheckoutPolicy {
	return CheckoutPolicy{
		Currency:              "INR",
		FreeShippingThreshold: decimal.NewFromInt(1000),
		ShippingFee:           decimal.NewFromInt(50),
		CODLimit:              decimal.NewFromInt(10000),
		MaxQuantityPerProduct: 5,
	}
}

// DefaultOrderPolicy 默认订单规则
func DefaultOrderPolicy() OrderPolicy {
	return OrderPolicy{
		IDPrefix:              "TS",
		ReturnWindow:          7 * 24 * time.Hour,
		ReturnReasonMinLength: 10,
		HistoryNotesMaxLength: 100,
	}
}

// ParseCheckoutPolicy 由配置字符串构建结算规则，空值回落到默认值
func ParseCheckoutPolicy(currency, threshold, fee, codLimit string, maxQuantity int) (CheckoutPolicy, error) {
	policy := DefaultCheckoutPolicy()
	if strings.TrimSpace(currency) != "" {
		policy.Currency = strings.ToUpper(strings.TrimSpace(currency))
	}
	fields := []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"free_shipping_threshold", threshold, &policy.FreeShippingThreshold},
		{"shipping_fee", fee, &policy.ShippingFee},
		{"cod_limit", codLimit, &policy.CODLimit},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(field.raw)
		if raw == "" {
			continue
		}
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return CheckoutPolicy{}, fmt.Errorf("invalid checkout.%s %q: %w", field.name, raw, err)
		}
		if parsed.IsNegative() {
			return CheckoutPolicy{}, fmt.Errorf("checkout.%s must not be negative", field.name)
		}
		*field.value = parsed.Round(2)
	}
	if maxQuantity > 0 {
		policy.MaxQuantityPerProduct = maxQuantity
	}
	return policy, nil
}

// ShippingFor 小计达到门槛免运费，否则收取固定运费
func (p CheckoutPolicy) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// QuantityCap 单品可购买上限 min(库存, 单品上限)
func (p CheckoutPolicy) QuantityCap(stock int) int {
	if stock < p.MaxQuantityPerProduct {
		return stock
	}
	return p.MaxQuantityPerProduct
}

func (p OrderPolicy) capNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	limit := p.HistoryNotesMaxLength
	if limit <= 0 {
		return notes
	}
	runes := []rune(notes)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return notes
}
