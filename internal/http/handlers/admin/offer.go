package admin

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/queue"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OfferRequest 创建/更新活动
type OfferRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	OfferType   string          `json:"offer_type" binding:"required,oneof=product category"`
	ProductID   *uint           `json:"product_id"`
	CategoryID  *uint           `json:"category_id"`
	Discount    decimal.Decimal `json:"discount" binding:"required"`
	StartDate   string          `json:"start_date" binding:"required"`
	EndDate     string          `json:"end_date" binding:"required"`
	Description string          `json:"description" binding:"max=1000"`
}

func (r OfferRequest) toInput() (service.OfferInput, error) {
	start, err := time.Parse("2006-01-02", strings.TrimSpace(r.StartDate))
	if err != nil {
		return service.OfferInput{}, service.ErrOfferInvalid.WithMessage("start_date must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse("2006-01-02", strings.TrimSpace(r.EndDate))
	if err != nil {
		return service.OfferInput{}, service.ErrOfferInvalid.WithMessage("end_date must be a date in YYYY-MM-DD format")
	}
	return service.OfferInput{
		Name:        r.Name,
		OfferType:   r.OfferType,
		ProductID:   r.ProductID,
		CategoryID:  r.CategoryID,
		Discount:    r.Discount,
		StartDate:   start,
		EndDate:     end,
		Description: r.Description,
	}, nil
}

// ListOffers 活动列表
func (h *Handler) ListOffers(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	filter := repository.OfferListFilter{
		Page:      page,
		PageSize:  pageSize,
		OfferType: strings.TrimSpace(c.Query("offer_type")),
		Status:    strings.TrimSpace(c.Query("status")),
	}
	if c.Query("product_id") != "" {
		id, ok := shared.ParseUintQuery(c, "product_id")
		if !ok {
			return
		}
		filter.ProductID = id
	}
	if c.Query("category_id") != "" {
		id, ok := shared.ParseUintQuery(c, "category_id")
		if !ok {
			return
		}
		filter.CategoryID = id
	}
	offers, total, err := h.OfferService.ListOffers(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, offers, shared.BuildPagination(page, pageSize, total))
}

// GetOffer 活动详情
func (h *Handler) GetOffer(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	offer, err := h.OfferService.GetOffer(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, offer)
}

// CreateOffer 创建活动
func (h *Handler) CreateOffer(c *gin.Context) {
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	offer, err := h.OfferService.CreateOffer(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Offer created", offer)
}

// UpdateOffer 更新活动
func (h *Handler) UpdateOffer(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	offer, err := h.OfferService.UpdateOffer(id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Offer updated", offer)
}

// OfferStatusRequest 活动启停
type OfferStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// SetOfferStatus 手动启用/停用活动
func (h *Handler) SetOfferStatus(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req OfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	offer, err := h.OfferService.SetStatus(id, req.Status, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, offer)
}

// ExpireOffers 立即执行过期活动清理，队列可用时异步执行
func (h *Handler) ExpireOffers(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueOfferExpire(queue.OfferExpirePayload{TriggeredBy: "admin"})
		if err == nil {
			requestLog(c).Infow("admin_offer_expire_enqueued", "admin_id", adminID)
			response.SuccessWithMsg(c, "Offer expiry scheduled", gin.H{"queued": true})
			return
		}
		requestLog(c).Warnw("admin_offer_expire_enqueue_failed", "admin_id", adminID, "error", err)
	}
	expired, err := h.OfferService.ExpireOldOffers(time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Expired offers updated", gin.H{"queued": false, "expired": expired})
}

// GetOfferStatistics 活动统计
func (h *Handler) GetOfferStatistics(c *gin.Context) {
	stats, err := h.OfferService.Statistics(time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
