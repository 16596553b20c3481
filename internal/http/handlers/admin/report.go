package admin

import (
	"strconv"
	"time"

	"github.com/timestamp-store/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetSalesReport 销售报表，默认最近 30 天
func (h *Handler) GetSalesReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -29)
	}
	report, err := h.ReportService.SalesReport(from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, report)
}

// GetStockReport 低库存与售罄规格
func (h *Handler) GetStockReport(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("threshold", "0"))
	lowStock, err := h.ReportService.LowStockVariants(threshold)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	outOfStock, err := h.ReportService.OutOfStockVariants()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"low_stock":    lowStock,
		"out_of_stock": outOfStock,
	})
}

// GetOrderStatistics 各状态订单数
func (h *Handler) GetOrderStatistics(c *gin.Context) {
	stats, err := h.ReportService.OrderStatistics()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
