package repository

import (
	"strings"

	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByOrderNoForUpdate(orderNo string) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNoForUser(orderNo string, userID uint) (*models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	Update(order *models.Order) error
	ListItems(orderID uint) ([]models.OrderItem, error)
	GetItem(itemID uint) (*models.OrderItem, error)
	GetItemForUpdate(itemID uint) (*models.OrderItem, error)
	UpdateItem(item *models.OrderItem) error
	CreateHistory(history *models.OrderStatusHistory) error
	ListHistory(orderID uint) ([]models.OrderStatusHistory, error)
	CountByStatus() (map[string]int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := r.db.Create(&items).Error; err != nil {
		return err
	}
	order.Items = items
	return nil
}

// GetByID 获取订单（带订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Order](r.withItems(r.db).Where("id = ?", id))
}

// GetByOrderNo 按订单号获取订单（带订单项）
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return firstOrNil[models.Order](r.withItems(r.db).Where("order_no = ?", orderNo))
}

// GetByOrderNoForUpdate 按订单号加锁获取订单行
func (r *GormOrderRepository) GetByOrderNoForUpdate(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return firstOrNil[models.Order](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_no = ?", orderNo))
}

// GetByIDForUpdate 加锁获取订单行
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Order](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetByOrderNoForUser 获取属于该用户的订单
func (r *GormOrderRepository) GetByOrderNoForUser(orderNo string, userID uint) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" || userID == 0 {
		return nil, nil
	}
	return firstOrNil[models.Order](r.withItems(r.db).Where("order_no = ? AND user_id = ?", orderNo, userID))
}

// ListByUser 用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return []models.Order{}, 0, nil
	}
	return r.list(filter)
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	return r.list(filter)
}

func (r *GormOrderRepository) list(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		op := likeOperator(r.db)
		like := containsPattern(search)
		query = query.Where("(order_no "+op+" ? OR full_name "+op+" ? OR mobile "+op+" ?)", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := r.withItems(query).Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) withItems(query *gorm.DB) *gorm.DB {
	return query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// Update 保存订单主表字段
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Omit(clause.Associations).Save(order).Error
}

// ListItems 订单全部订单项
func (r *GormOrderRepository) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	return items, err
}

// GetItem 获取订单项（不加锁）
func (r *GormOrderRepository) GetItem(itemID uint) (*models.OrderItem, error) {
	if itemID == 0 {
		return nil, nil
	}
	return firstOrNil[models.OrderItem](r.db.Where("id = ?", itemID))
}

// GetItemForUpdate 加锁获取订单项
func (r *GormOrderRepository) GetItemForUpdate(itemID uint) (*models.OrderItem, error) {
	if itemID == 0 {
		return nil, nil
	}
	return firstOrNil[models.OrderItem](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", itemID))
}

// UpdateItem 保存订单项
func (r *GormOrderRepository) UpdateItem(item *models.OrderItem) error {
	return r.db.Save(item).Error
}

// CreateHistory 追加状态流水
func (r *GormOrderRepository) CreateHistory(history *models.OrderStatusHistory) error {
	return r.db.Create(history).Error
}

// ListHistory 状态流水（新在前）
func (r *GormOrderRepository) ListHistory(orderID uint) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.Where("order_id = ?", orderID).Order("created_at desc, id desc").Find(&rows).Error
	return rows, err
}

// CountByStatus 各状态订单数
func (r *GormOrderRepository) CountByStatus() (map[string]int64, error) {
	type statusCount struct {
		Status string
		Total  int64
	}
	var rows []statusCount
	if err := r.db.Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}
