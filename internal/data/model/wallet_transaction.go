package model

import (
	"photogen-service/internal/constants"
	"time"
)

// 流水类型常量（引用 constants 包中的常量，保持一致性）
const (
	TxKindTopUp      = constants.TxKindTopUp      // 充值
	TxKindAllocation = constants.TxKindAllocation // 划拨
	TxKindUsage      = constants.TxKindUsage      // 生成扣减
	TxKindRefund     = constants.TxKindRefund     // 生成失败退还
)

// WalletTransaction 钱包流水表（只追加，不修改不删除）
// 余额字段是流水的物化缓存，流水才是权威数据
type WalletTransaction struct {
	WalletTransactionID string    `gorm:"primaryKey;type:varchar(36)"`
	AccountKind         string    `gorm:"type:enum('partner','event','consumer');not null;index:idx_account,priority:1"`
	AccountID           string    `gorm:"type:varchar(36);not null;index:idx_account,priority:2"`
	Amount              int       `gorm:"not null"` // 有符号：充值/退还为正，扣减/划拨为负
	Kind                string    `gorm:"type:enum('topup','allocation','usage','refund');not null"`
	Description         string    `gorm:"type:varchar(255)"`
	CreatedAt           time.Time `gorm:"autoCreateTime;index:idx_account,priority:3"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
