package repository

import (
	"strings"

	"github.com/timestamp-store/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 在线支付记录数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByGatewayOrderID(gatewayOrderID string) (*models.Payment, error)
	ListByOrder(orderID uint) ([]models.Payment, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓储
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByGatewayOrderID 按网关订单号获取支付记录
func (r *GormPaymentRepository) GetByGatewayOrderID(gatewayOrderID string) (*models.Payment, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, nil
	}
	return firstOrNil[models.Payment](r.db.Where("gateway_order_id = ?", gatewayOrderID))
}

// ListByOrder 订单的支付记录
func (r *GormPaymentRepository) ListByOrder(orderID uint) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&rows).Error
	return rows, err
}
