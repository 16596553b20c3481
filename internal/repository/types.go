package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	Search      string // 匹配订单号、收货人、手机号
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Type        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OfferListFilter 查询活动列表的过滤条件
type OfferListFilter struct {
	Page       int
	PageSize   int
	OfferType  string
	Status     string
	ProductID  uint
	CategoryID uint
}

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	IsActive *bool
}

// SalesReportFilter 销售报表过滤条件
type SalesReportFilter struct {
	From     time.Time
	To       time.Time
	Statuses []string
}
