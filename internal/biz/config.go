package biz

import (
	"time"

	"photogen-service/internal/conf"
)

// CreditConfig 信用点业务配置
type CreditConfig struct {
	DefaultDailyCap     int           // 散客每日生成上限（档案未配置时的兜底值）
	BalanceLowThreshold int           // 余额低告警阈值（信用点数）
	RefundTimeout       time.Duration // 退款落库超时（退款使用独立 context，不随调用方取消）
}

// NewCreditConfig 从配置创建 CreditConfig
func NewCreditConfig(c *conf.Bootstrap) *CreditConfig {
	config := &CreditConfig{
		DefaultDailyCap:     2,               // 默认值
		BalanceLowThreshold: 10,              // 默认值
		RefundTimeout:       5 * time.Second, // 默认值
	}
	if c.Credit != nil {
		if c.Credit.DefaultDailyCap > 0 {
			config.DefaultDailyCap = int(c.Credit.DefaultDailyCap)
		}
		if c.Credit.BalanceLowThreshold > 0 {
			config.BalanceLowThreshold = int(c.Credit.BalanceLowThreshold)
		}
		if d := c.Credit.RefundTimeout.AsDuration(); d > 0 {
			config.RefundTimeout = d
		}
	}
	return config
}
