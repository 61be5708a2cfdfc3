package model

import (
	"time"
)

// EventAccount 活动子钱包表
// 从合作方余额中划出，credits_allocated - credits_used 即活动可用余额
type EventAccount struct {
	EventAccountID   string    `gorm:"primaryKey;type:varchar(36)"`
	EventID          string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	PartnerID        string    `gorm:"type:varchar(36);not null;index"`
	CreditsAllocated int       `gorm:"default:0"`
	CreditsUsed      int       `gorm:"default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (EventAccount) TableName() string {
	return "event_account"
}
