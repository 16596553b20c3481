package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateCouponRequest 创建优惠券
type CreateCouponRequest struct {
	Code               string          `json:"code" binding:"required,min=3,max=50"`
	Description        string          `json:"description" binding:"max=500"`
	DiscountType       string          `json:"discount_type" binding:"required,oneof=fixed percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	MinPurchaseAmount  decimal.Decimal `json:"min_purchase_amount"`
	StartDate          string          `json:"start_date" binding:"required"`
	EndDate            string          `json:"end_date" binding:"required"`
	UsageLimit         *int            `json:"usage_limit" binding:"omitempty,min=1"`
	OneTimeUse         bool            `json:"one_time_use"`
	IsActive           *bool           `json:"is_active"`
}

// ListCoupons 优惠券列表
func (h *Handler) ListCoupons(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "is_active must be true or false")
			return
		}
		filter.IsActive = &active
	}
	coupons, total, err := h.CouponService.ListCoupons(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, coupons, shared.BuildPagination(page, pageSize, total))
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	start, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
	if err != nil {
		response.BadRequest(c, "start_date must be a date in YYYY-MM-DD format")
		return
	}
	end, err := time.Parse("2006-01-02", strings.TrimSpace(req.EndDate))
	if err != nil {
		response.BadRequest(c, "end_date must be a date in YYYY-MM-DD format")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	coupon, err := h.CouponService.CreateCoupon(service.CreateCouponInput{
		Code:               req.Code,
		Description:        req.Description,
		DiscountType:       req.DiscountType,
		DiscountAmount:     req.DiscountAmount,
		DiscountPercentage: req.DiscountPercentage,
		MinPurchaseAmount:  req.MinPurchaseAmount,
		StartDate:          start,
		EndDate:            end,
		UsageLimit:         req.UsageLimit,
		OneTimeUse:         req.OneTimeUse,
		IsActive:           isActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Coupon created", coupon)
}
