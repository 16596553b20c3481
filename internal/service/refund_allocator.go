package service

import (
	"github.com/shopspring/decimal"
)

// RefundLine 待退款的订单行
type RefundLine struct {
	ItemID    uint
	UnitPrice decimal.Decimal
	Quantity  int
}

// RefundLineResult 单行退款结果
type RefundLineResult struct {
	ItemID       uint            `json:"item_id"`
	PricePaid    decimal.Decimal `json:"price_paid"`
	CouponShare  decimal.Decimal `json:"coupon_share"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// RefundAllocation 退款分摊结果
type RefundAllocation struct {
	Lines       []RefundLineResult `json:"lines"`
	TotalRefund decimal.Decimal    `json:"total_refund"`
	CouponUsed  bool               `json:"coupon_used"`
}

// AllocateRefund 按行金额占优惠前总额的比例分摊优惠券折扣，未使用优惠券时分摊额为 0
func AllocateRefund(lines []RefundLine, couponDiscount, cartTotalBeforeDiscount decimal.Decimal) RefundAllocation {
	couponUsed := couponDiscount.IsPositive() && cartTotalBeforeDiscount.IsPositive()
	allocation := RefundAllocation{
		Lines:       make([]RefundLineResult, 0, len(lines)),
		TotalRefund: decimal.Zero,
		CouponUsed:  couponUsed,
	}
	for _, line := range lines {
		paid := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		share := decimal.Zero
		if couponUsed {
			share = couponDiscount.Mul(paid).Div(cartTotalBeforeDiscount).Round(2)
			if share.GreaterThan(paid) {
				share = paid
			}
		}
		refund := paid.Sub(share)
		allocation.Lines = append(allocation.Lines, RefundLineResult{
			ItemID:       line.ItemID,
			PricePaid:    paid,
			CouponShare:  share,
			RefundAmount: refund,
		})
		allocation.TotalRefund = allocation.TotalRefund.Add(refund)
	}
	return allocation
}
