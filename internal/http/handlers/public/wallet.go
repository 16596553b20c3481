package public

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetWallet 钱包余额
func (h *Handler) GetWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	wallet, err := h.WalletService.GetWallet(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, wallet)
}

// ListWalletTransactions 钱包流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.PageQuery(c)
	txns, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     c.Query("type"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, txns, shared.BuildPagination(page, pageSize, total))
}
