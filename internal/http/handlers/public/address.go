package public

import (
	"strings"

	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/models"

	"github.com/gin-gonic/gin"
)

// AddressRequest 收货地址
type AddressRequest struct {
	FullName      string `json:"full_name" binding:"required,max=100"`
	Mobile        string `json:"mobile" binding:"required,min=10,max=15"`
	StreetAddress string `json:"street_address" binding:"required,max=255"`
	City          string `json:"city" binding:"required,max=100"`
	State         string `json:"state" binding:"required,max=100"`
	PostalCode    string `json:"postal_code" binding:"required,max=20"`
	IsDefault     bool   `json:"is_default"`
}

// ListAddresses 收货地址列表
func (h *Handler) ListAddresses(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	addresses, err := h.UserRepo.ListAddresses(uid)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "Failed to load addresses", err)
		return
	}
	response.Success(c, addresses)
}

// CreateAddress 新增收货地址
func (h *Handler) CreateAddress(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	address := &models.Address{
		UserID:        uid,
		FullName:      strings.TrimSpace(req.FullName),
		Mobile:        strings.TrimSpace(req.Mobile),
		StreetAddress: strings.TrimSpace(req.StreetAddress),
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		PostalCode:    strings.TrimSpace(req.PostalCode),
		IsDefault:     req.IsDefault,
	}
	if err := h.UserRepo.CreateAddress(address); err != nil {
		shared.RespondError(c, response.CodeInternal, "Failed to save address", err)
		return
	}
	response.Success(c, address)
}
