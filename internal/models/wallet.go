package models

import "time"

// Wallet 用户钱包（每个用户一个）
type Wallet struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   Money     `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallets"
}

// WalletTransaction 钱包流水（只追加，记录变动前后余额）
type WalletTransaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	WalletID    uint      `gorm:"index;not null" json:"wallet_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Type        string    `gorm:"type:varchar(20);index;not null" json:"type"` // credit/debit
	Amount      Money     `gorm:"type:decimal(12,2);not null" json:"amount"`
	OldBalance  Money     `gorm:"type:decimal(12,2);not null" json:"old_balance"`
	NewBalance  Money     `gorm:"type:decimal(12,2);not null" json:"new_balance"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	OrderID     *uint     `gorm:"index" json:"order_id,omitempty"`
	OrderItemID *uint     `gorm:"index" json:"order_item_id,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
