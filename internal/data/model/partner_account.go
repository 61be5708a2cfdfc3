package model

import (
	"time"
)

// PartnerAccount 合作方批发账户表
// credits_total - credits_used 即合作方可用余额；向活动划拨计入 credits_used
type PartnerAccount struct {
	PartnerAccountID string    `gorm:"primaryKey;type:varchar(36)"`
	PartnerID        string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	CreditsTotal     int       `gorm:"default:0"`
	CreditsUsed      int       `gorm:"default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (PartnerAccount) TableName() string {
	return "partner_account"
}
