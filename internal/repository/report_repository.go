package repository

import (
	"time"

	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// ReportRepository 报表查询接口
// 说明：金额聚合在服务层用 decimal 完成，这里只返回原始行。
type ReportRepository interface {
	ListSalesOrders(filter SalesReportFilter) ([]SalesOrderRow, error)
	SumItemQuantities(orderIDs []uint, excludeStatuses []string) (map[uint]int64, error)
}

// SalesOrderRow 销售报表需要的订单字段
type SalesOrderRow struct {
	ID             uint
	OrderNo        string
	CreatedAt      time.Time
	Status         string
	PaymentMethod  string
	Subtotal       models.Money
	DiscountAmount models.Money
	CouponDiscount models.Money
	ShippingCharge models.Money
	TotalAmount    models.Money
}

// GormReportRepository GORM 实现
type GormReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建报表仓储
func NewReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// ListSalesOrders 时间范围内、状态计入销售的订单
func (r *GormReportRepository) ListSalesOrders(filter SalesReportFilter) ([]SalesOrderRow, error) {
	var rows []SalesOrderRow
	query := r.db.Model(&models.Order{}).
		Select("id, order_no, created_at, status, payment_method, subtotal, discount_amount, coupon_discount, shipping_charge, total_amount").
		Where("created_at >= ? AND created_at < ?", filter.From, filter.To)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if err := query.Order("created_at asc, id asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumItemQuantities 按订单汇总商品件数，可排除部分订单项状态
func (r *GormReportRepository) SumItemQuantities(orderIDs []uint, excludeStatuses []string) (map[uint]int64, error) {
	result := make(map[uint]int64, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	type quantityRow struct {
		OrderID  uint
		Quantity int64
	}
	var rows []quantityRow
	query := r.db.Model(&models.OrderItem{}).
		Select("order_id, COALESCE(SUM(quantity), 0) AS quantity").
		Where("order_id IN ?", orderIDs)
	if len(excludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", excludeStatuses)
	}
	if err := query.Group("order_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.OrderID] = row.Quantity
	}
	return result, nil
}
