package public

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/service"

	"github.com/gin-gonic/gin"
)

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	AddressID     uint   `json:"address_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cod wallet wallet_cod"`
	BuyNow        bool   `json:"buy_now"`
	Notes         string `json:"notes" binding:"max=500"`
}

// OnlinePaymentRequest 在线支付下单请求，是否抵扣钱包以结算会话为准
type OnlinePaymentRequest struct {
	AddressID uint   `json:"address_id" binding:"required"`
	BuyNow    bool   `json:"buy_now"`
	Notes     string `json:"notes" binding:"max=500"`
}

// PlaceOrder 货到付款 / 钱包支付下单
func (h *Handler) PlaceOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	order, err := h.OrderService.PlaceOrder(c.Request.Context(), service.PlaceOrderInput{
		UserID:        uid,
		Session:       h.Session(uid),
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		BuyNow:        req.BuyNow || summaryOptions(c).BuyNow,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, checkoutErrorRules)
		return
	}
	response.SuccessWithMsg(c, "Order placed successfully", order)
}

// StartOnlinePayment 创建网关订单，返回前端拉起支付所需参数
func (h *Handler) StartOnlinePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req OnlinePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	checkout, err := h.OrderService.StartOnlineCheckout(c.Request.Context(), service.PlaceOrderInput{
		UserID:    uid,
		Session:   h.Session(uid),
		AddressID: req.AddressID,
		BuyNow:    req.BuyNow || summaryOptions(c).BuyNow,
		Notes:     req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, checkoutErrorRules)
		return
	}
	response.Success(c, checkout)
}

// ConfirmOnlinePaymentRequest 支付完成回传
type ConfirmOnlinePaymentRequest struct {
	GatewayOrderID string `json:"razorpay_order_id" binding:"required"`
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`
}

// ConfirmOnlinePayment 校验支付签名并生成订单
func (h *Handler) ConfirmOnlinePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ConfirmOnlinePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	order, err := h.OrderService.ConfirmOnlinePayment(c.Request.Context(), service.ConfirmOnlineInput{
		UserID:         uid,
		Session:        h.Session(uid),
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		respondServiceError(c, err, checkoutErrorRules)
		return
	}
	response.SuccessWithMsg(c, "Payment successful", order)
}

// ListOrders 我的订单
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.PageQuery(c)
	orders, total, err := h.OrderService.ListOrdersForUser(uid, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, shared.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情（含状态流水与折扣合计）
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	detail, err := h.OrderService.GetOrderDetailForUser(uid, c.Param("order_no"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// ReasonRequest 取消/退货原因
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CancelOrder 取消整单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	order, err := h.OrderService.CancelOrder(c.Request.Context(), uid, c.Param("order_no"), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Order cancelled", order)
}

// CancelOrderItem 取消单个订单项
func (h *Handler) CancelOrderItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	order, err := h.OrderService.CancelItem(c.Request.Context(), uid, itemID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Item cancelled", order)
}

// RequestReturn 申请退货
func (h *Handler) RequestReturn(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	item, err := h.OrderService.RequestReturn(c.Request.Context(), uid, itemID, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Return request submitted", item)
}

// RefundBreakdownRequest 退款明细查询
type RefundBreakdownRequest struct {
	ItemIDs []uint `form:"item_ids"`
}

// GetRefundBreakdown 订单项按优惠券分摊后的退款金额
func (h *Handler) GetRefundBreakdown(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req RefundBreakdownRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	allocation, err := h.OrderService.RefundBreakdown(uid, c.Param("order_no"), req.ItemIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, allocation)
}
