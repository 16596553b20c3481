package repository

import (
	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository 钱包数据访问接口
type WalletRepository interface {
	GetByUserID(userID uint) (*models.Wallet, error)
	GetByUserIDForUpdate(userID uint) (*models.Wallet, error)
	Create(wallet *models.Wallet) error
	Update(wallet *models.Wallet) error
	CreateTransaction(txn *models.WalletTransaction) error
	ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error)
	SumTransactions(walletID uint) (credits decimal.Decimal, debits decimal.Decimal, err error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormWalletRepository
}

// GormWalletRepository GORM 钱包仓储实现
type GormWalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWalletRepository) WithTx(tx *gorm.DB) *GormWalletRepository {
	if tx == nil {
		return r
	}
	return &GormWalletRepository{db: tx}
}

// Transaction 在新事务中执行
func (r *GormWalletRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByUserID 按用户ID获取钱包
func (r *GormWalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, nil
	}
	return firstOrNil[models.Wallet](r.db.Where("user_id = ?", userID))
}

// GetByUserIDForUpdate 按用户ID加锁获取钱包
func (r *GormWalletRepository) GetByUserIDForUpdate(userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, nil
	}
	return firstOrNil[models.Wallet](r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID))
}

// Create 创建钱包，已存在时不报错
func (r *GormWalletRepository) Create(wallet *models.Wallet) error {
	return r.db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).Create(wallet).Error
}

// Update 保存钱包余额
func (r *GormWalletRepository) Update(wallet *models.Wallet) error {
	return r.db.Save(wallet).Error
}

// CreateTransaction 创建钱包流水
func (r *GormWalletRepository) CreateTransaction(txn *models.WalletTransaction) error {
	return r.db.Create(txn).Error
}

// ListTransactions 分页查询钱包流水
func (r *GormWalletRepository) ListTransactions(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.Model(&models.WalletTransaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
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

	var txns []models.WalletTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumTransactions 汇总钱包的入账与出账金额
func (r *GormWalletRepository) SumTransactions(walletID uint) (decimal.Decimal, decimal.Decimal, error) {
	var txns []models.WalletTransaction
	if err := r.db.Select("type", "amount").Where("wallet_id = ?", walletID).Find(&txns).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	credits, debits := decimal.Zero, decimal.Zero
	for _, txn := range txns {
		switch txn.Type {
		case constants.WalletTxnTypeCredit:
			credits = credits.Add(txn.Amount.Decimal)
		case constants.WalletTxnTypeDebit:
			debits = debits.Add(txn.Amount.Decimal)
		}
	}
	return credits, debits, nil
}
