package admin

import (
	"github.com/timestamp-store/internal/http/handlers/shared"
	"github.com/timestamp-store/internal/http/response"
	"github.com/timestamp-store/internal/repository"

	"github.com/gin-gonic/gin"
)

// VerifyWalletLedger 核对钱包余额与流水合计
func (h *Handler) VerifyWalletLedger(c *gin.Context) {
	userID, ok := shared.ParseUintParam(c, "user_id")
	if !ok {
		return
	}
	check, err := h.WalletService.VerifyLedger(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !check.Consistent {
		requestLog(c).Warnw("admin_wallet_ledger_mismatch", "user_id", userID, "balance", check.Balance.String(), "expected", check.Expected.String())
	}
	response.Success(c, check)
}

// ListWalletTransactions 指定用户的钱包流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	userID, ok := shared.ParseUintParam(c, "user_id")
	if !ok {
		return
	}
	page, pageSize := shared.PageQuery(c)
	filter := repository.WalletTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Type:     c.Query("type"),
	}
	if c.Query("order_id") != "" {
		orderID, ok := shared.ParseUintQuery(c, "order_id")
		if !ok {
			return
		}
		filter.OrderID = orderID
	}
	txns, total, err := h.WalletService.ListTransactions(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, txns, shared.BuildPagination(page, pageSize, total))
}
