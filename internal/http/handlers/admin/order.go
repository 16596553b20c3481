package admin

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/repository"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOrders 订单列表 (Admin)
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.PageQuery(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, ok := shared.ParseUintQuery(c, "user_id")
		if !ok {
			return
		}
		filter.UserID = userID
	}
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	if !from.IsZero() {
		filter.CreatedFrom = &from
	}
	if !to.IsZero() {
		end := to.AddDate(0, 0, 1)
		filter.CreatedTo = &end
	}
	orders, total, err := h.OrderService.ListOrdersAdmin(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, shared.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情 (Admin)
func (h *Handler) GetOrder(c *gin.Context) {
	detail, err := h.OrderService.GetOrderDetailAdmin(c.Param("order_no"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpdateOrderStatusRequest 修改订单状态
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Notes          string `json:"notes" binding:"max=500"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
}

// UpdateOrderStatus 按流转规则修改订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	order, err := h.OrderService.UpdateOrderStatus(c.Request.Context(), service.UpdateOrderStatusInput{
		OrderNo:        c.Param("order_no"),
		Status:         req.Status,
		AdminID:        adminID,
		Notes:          req.Notes,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Order status updated", order)
}

// ApproveReturn 同意退货并退款至钱包
func (h *Handler) ApproveReturn(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.ApproveReturn(c.Request.Context(), adminID, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Return approved", order)
}

// RejectReturnRequest 驳回退货
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RejectReturn 驳回退货申请
func (h *Handler) RejectReturn(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req RejectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	item, err := h.OrderService.RejectReturn(c.Request.Context(), adminID, itemID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Return rejected", item)
}

// parseDateRange 解析 from/to 查询参数（YYYY-MM-DD），缺省返回零值
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "from must be a date in YYYY-MM-DD format")
			return from, to, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "to must be a date in YYYY-MM-DD format")
			return from, to, false
		}
		to = parsed
	}
	return from, to, true
}
