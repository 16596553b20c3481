package public

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCheckoutSummary 结算汇总（source=buy_now 时为立即购买）
func (h *Handler) GetCheckoutSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.CheckoutService.BuildSummary(c.Request.Context(), uid, h.Session(uid), summaryOptions(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// ApplyCouponRequest 使用优惠券请求
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=50"`
}

// ApplyCoupon 使用优惠券
func (h *Handler) ApplyCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	summary, err := h.CheckoutService.ApplyCoupon(c.Request.Context(), uid, h.Session(uid), req.Code, summaryOptions(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Coupon applied", summary)
}

// RemoveCoupon 取消优惠券
func (h *Handler) RemoveCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.CheckoutService.RemoveCoupon(c.Request.Context(), uid, h.Session(uid), summaryOptions(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Coupon removed", summary)
}

// ListCheckoutCoupons 当前结算可用的优惠券
func (h *Handler) ListCheckoutCoupons(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	coupons, err := h.CheckoutService.ListCoupons(c.Request.Context(), uid, h.Session(uid), summaryOptions(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, coupons)
}

// WalletToggleRequest 钱包余额开关
type WalletToggleRequest struct {
	UseWallet bool `json:"use_wallet"`
}

// ToggleWallet 切换是否使用钱包余额
func (h *Handler) ToggleWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req WalletToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	summary, err := h.CheckoutService.SetUseWallet(c.Request.Context(), uid, h.Session(uid), req.UseWallet, summaryOptions(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// BuyNowRequest 立即购买请求
type BuyNowRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// StartBuyNow 创建立即购买草稿
func (h *Handler) StartBuyNow(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req BuyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	summary, err := h.CheckoutService.StartBuyNow(c.Request.Context(), uid, h.Session(uid), req.VariantID, req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// CancelBuyNow 放弃立即购买草稿
func (h *Handler) CancelBuyNow(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CheckoutService.CancelBuyNow(c.Request.Context(), h.Session(uid)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"cancelled": true})
}
