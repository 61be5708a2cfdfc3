package model

import (
	"time"
)

// GenerationRecord 生成记录表
// 仅在生成成功提交时写入；除审核删除外不再修改
type GenerationRecord struct {
	GenerationRecordID string    `gorm:"primaryKey;type:varchar(36)"`
	AccountKind        string    `gorm:"type:enum('partner','event','consumer');not null;index:idx_account_date,priority:1"`
	AccountID          string    `gorm:"type:varchar(36);not null;index:idx_account_date,priority:2"`
	EventID            string    `gorm:"type:varchar(36);index"` // 活动生成时填写，散客为空
	StyleID            string    `gorm:"type:varchar(64);not null;index"`
	SourceImageURL     string    `gorm:"type:varchar(512)"`
	ImageURL           string    `gorm:"type:varchar(512);not null"`
	ClientIP           string    `gorm:"type:varchar(64)"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index:idx_account_date,priority:3"`
}

// TableName 指定表名
func (GenerationRecord) TableName() string {
	return "generation_record"
}
