package service

import (
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	defaultLowStockThreshold = 5
	maxReportRangeDays       = 366
)

// SalesTotals 销售汇总
type SalesTotals struct {
	OrderCount     int64           `json:"order_count"`
	ItemCount      int64           `json:"item_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	OfferDiscount  decimal.Decimal `json:"offer_discount"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Shipping       decimal.Decimal `json:"shipping"`
}

// SalesDay 按天的销售数据
type SalesDay struct {
	Date string `json:"date"`
	SalesTotals
}

// SalesReport 销售报表
type SalesReport struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Totals SalesTotals `json:"totals"`
	Days   []SalesDay  `json:"days"`
}

// ReportService 报表服务
type ReportService struct {
	reportRepo  repository.ReportRepository
	orderRepo   repository.OrderRepository
	variantRepo repository.VariantRepository
}

// NewReportService 创建报表服务
func NewReportService(reportRepo repository.ReportRepository, orderRepo repository.OrderRepository, variantRepo repository.VariantRepository) *ReportService {
	return &ReportService{
		reportRepo:  reportRepo,
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
	}
}

// SalesReport 统计 [from, to] 自然日内计入销售的订单（按订单级状态）
func (s *ReportService) SalesReport(from, to time.Time) (*SalesReport, error) {
	start := models.DateOnly(from)
	end := models.DateOnly(to)
	if from.IsZero() || to.IsZero() || end.Before(start) {
		return nil, ErrInvalidReportRange
	}
	if end.Sub(start) > maxReportRangeDays*24*time.Hour {
		return nil, ErrInvalidReportRange.WithMessagef("Report range cannot exceed %d days", maxReportRangeDays)
	}

	rows, err := s.reportRepo.ListSalesOrders(repository.SalesReportFilter{
		From:     start,
		To:       end.AddDate(0, 0, 1),
		Statuses: constants.SalesCountedOrderStatuses,
	})
	if err != nil {
		return nil, err
	}
	orderIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.ID)
	}
	quantities, err := s.reportRepo.SumItemQuantities(orderIDs, constants.RefundableItemStatuses)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		From:   start.Format("2006-01-02"),
		To:     end.Format("2006-01-02"),
		Totals: newSalesTotals(),
	}
	byDay := make(map[string]*SalesTotals)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		totals := newSalesTotals()
		byDay[day.Format("2006-01-02")] = &totals
	}
	for _, row := range rows {
		key := models.DateOnly(row.CreatedAt).Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			continue
		}
		day.add(row, quantities[row.ID])
		report.Totals.add(row, quantities[row.ID])
	}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		report.Days = append(report.Days, SalesDay{Date: key, SalesTotals: *byDay[key]})
	}
	return report, nil
}

func newSalesTotals() SalesTotals {
	return SalesTotals{
		Revenue:        decimal.Zero,
		OfferDiscount:  decimal.Zero,
		CouponDiscount: decimal.Zero,
		Shipping:       decimal.Zero,
	}
}

func (t *SalesTotals) add(row repository.SalesOrderRow, items int64) {
	t.OrderCount++
	t.ItemCount += items
	t.Revenue = t.Revenue.Add(row.TotalAmount.Decimal)
	t.OfferDiscount = t.OfferDiscount.Add(row.DiscountAmount.Decimal)
	t.CouponDiscount = t.CouponDiscount.Add(row.CouponDiscount.Decimal)
	t.Shipping = t.Shipping.Add(row.ShippingCharge.Decimal)
}

// LowStockVariants 库存低于阈值的在售规格
func (s *ReportService) LowStockVariants(threshold int) ([]models.ProductVariant, error) {
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return s.variantRepo.ListLowStock(threshold)
}

// OutOfStockVariants 已售罄的在售规格
func (s *ReportService) OutOfStockVariants() ([]models.ProductVariant, error) {
	return s.variantRepo.ListOutOfStock()
}

// OrderStatistics 各状态订单数，未出现的状态补 0
func (s *ReportService) OrderStatistics() (map[string]int64, error) {
	counts, err := s.orderRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(constants.OrderStatuses))
	for _, status := range constants.OrderStatuses {
		result[status] = counts[status]
	}
	return result, nil
}
