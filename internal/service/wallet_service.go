package service

import (
	"strings"
	"time"

	"github.com/timestamp-store/internal/constants"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/models"
	"github.com/timestamp-store/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包服务
type WalletService struct {
	walletRepo repository.WalletRepository
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo}
}

// WalletChangeInput 钱包入账/扣款输入
type WalletChangeInput struct {
	UserID      uint
	Amount      decimal.Decimal
	Description string
	OrderID     *uint
	OrderItemID *uint
}

// LedgerCheck 钱包对账结果
type LedgerCheck struct {
	UserID     uint            `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	Credits    decimal.Decimal `json:"credits"`
	Debits     decimal.Decimal `json:"debits"`
	Expected   decimal.Decimal `json:"expected"`
	Consistent bool            `json:"consistent"`
}

// GetWallet 获取钱包（不存在时创建）
func (s *WalletService) GetWallet(userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, ErrWalletNotFound
	}
	wallet, err := s.walletRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	if err := s.walletRepo.Create(&models.Wallet{UserID: userID, Balance: models.ZeroMoney()}); err != nil {
		return nil, normalizePersistenceError(err)
	}
	return s.walletRepo.GetByUserID(userID)
}

// Balance 当前余额，无钱包视为 0
func (s *WalletService) Balance(userID uint) (decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByUserID(userID)
	if err != nil {
		return decimal.Zero, err
	}
	if wallet == nil {
		return decimal.Zero, nil
	}
	return wallet.Balance.Decimal, nil
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// Credit 独立事务入账
func (s *WalletService) Credit(input WalletChangeInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.CreditInTx(tx, input)
		return err
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	return txn, nil
}

// Debit 独立事务扣款
func (s *WalletService) Debit(input WalletChangeInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.walletRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = s.DebitInTx(tx, input)
		return err
	})
	if err != nil {
		return nil, normalizePersistenceError(err)
	}
	return txn, nil
}

// CreditInTx 在调用方事务内入账
func (s *WalletService) CreditInTx(tx *gorm.DB, input WalletChangeInput) (*models.WalletTransaction, error) {
	return s.changeBalance(tx, constants.WalletTxnTypeCredit, input)
}

// DebitInTx 在调用方事务内扣款，余额不足时不写入任何数据
func (s *WalletService) DebitInTx(tx *gorm.DB, input WalletChangeInput) (*models.WalletTransaction, error) {
	return s.changeBalance(tx, constants.WalletTxnTypeDebit, input)
}

func (s *WalletService) changeBalance(tx *gorm.DB, txnType string, input WalletChangeInput) (*models.WalletTransaction, error) {
	if input.UserID == 0 {
		return nil, ErrWalletNotFound
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}

	repo := s.walletRepo.WithTx(tx)
	wallet, err := s.lockWallet(repo, input.UserID)
	if err != nil {
		return nil, err
	}

	before := wallet.Balance.Decimal.Round(2)
	after := before.Add(amount)
	if txnType == constants.WalletTxnTypeDebit {
		if before.LessThan(amount) {
			logger.Warnw("wallet_debit_rejected",
				"user_id", input.UserID,
				"balance", before.StringFixed(2),
				"amount", amount.StringFixed(2),
			)
			return nil, ErrWalletInsufficientBalance.WithMessagef("Insufficient wallet balance. Available: %s", formatRupees(before))
		}
		after = before.Sub(amount)
	}

	wallet.Balance = models.NewMoneyFromDecimal(after)
	if err := repo.Update(wallet); err != nil {
		return nil, err
	}
	txn := &models.WalletTransaction{
		WalletID:    wallet.ID,
		UserID:      input.UserID,
		Type:        txnType,
		Amount:      models.NewMoneyFromDecimal(amount),
		OldBalance:  models.NewMoneyFromDecimal(before),
		NewBalance:  models.NewMoneyFromDecimal(after),
		Description: strings.TrimSpace(input.Description),
		OrderID:     input.OrderID,
		OrderItemID: input.OrderItemID,
		CreatedAt:   time.Now(),
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	logger.Infow("wallet_balance_changed",
		"user_id", input.UserID,
		"type", txnType,
		"amount", amount.StringFixed(2),
		"old_balance", before.StringFixed(2),
		"new_balance", after.StringFixed(2),
	)
	return txn, nil
}

// lockWallet 锁定钱包行，首次使用时创建
func (s *WalletService) lockWallet(repo *repository.GormWalletRepository, userID uint) (*models.Wallet, error) {
	wallet, err := repo.GetByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}
	if err := repo.Create(&models.Wallet{UserID: userID, Balance: models.ZeroMoney()}); err != nil {
		return nil, normalizePersistenceError(err)
	}
	wallet, err = repo.GetByUserIDForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrConflictRetry
	}
	return wallet, nil
}

// VerifyLedger 以流水重算余额并与钱包余额比对
func (s *WalletService) VerifyLedger(userID uint) (*LedgerCheck, error) {
	wallet, err := s.walletRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	credits, debits, err := s.walletRepo.SumTransactions(wallet.ID)
	if err != nil {
		return nil, err
	}
	expected := credits.Sub(debits).Round(2)
	balance := wallet.Balance.Decimal.Round(2)
	check := &LedgerCheck{
		UserID:     userID,
		Balance:    balance,
		Credits:    credits.Round(2),
		Debits:     debits.Round(2),
		Expected:   expected,
		Consistent: expected.Equal(balance),
	}
	if !check.Consistent {
		logger.Errorw("wallet_ledger_mismatch", "user_id", userID, "balance", balance.StringFixed(2), "expected", expected.StringFixed(2))
	}
	return check, nil
}
