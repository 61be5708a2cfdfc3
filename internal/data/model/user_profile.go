package model

import (
	"time"
)

// UserProfile 通用用户档案表
// 两种角色共用一张表：
//   1. 散客账户：credits 为自购余额，total_generations 为累计生成数，daily_cap 为每日上限
//   2. 虚拟合作方：没有 partner_account 行的老合作方，充值/划拨直接映射到 credits 字段
type UserProfile struct {
	UserProfileID    string    `gorm:"primaryKey;type:varchar(36)"`
	UID              string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	Credits          int       `gorm:"default:0"`
	TotalGenerations int       `gorm:"default:0"`
	DailyCap         int       `gorm:"default:2"`
	Unlimited        bool      `gorm:"default:false"` // 特权账户不受每日上限约束
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserProfile) TableName() string {
	return "user_profile"
}
