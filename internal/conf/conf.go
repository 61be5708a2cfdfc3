package conf

import "time"

// Duration 配置中的时长字段（如 "5s"、"90s"），兼容 YAML 字符串写法
type Duration string

// AsDuration 解析为 time.Duration，解析失败返回 0
func (d Duration) AsDuration() time.Duration {
	if d == "" {
		return 0
	}
	v, err := time.ParseDuration(string(d))
	if err != nil {
		return 0
	}
	return v
}

// Bootstrap 启动配置
type Bootstrap struct {
	Server   *Server   `json:"server"`
	Data     *Data     `json:"data"`
	Provider *Provider `json:"provider"`
	Credit   *Credit   `json:"credit"`
}

// Server 服务端配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database 数据库配置
type Database struct {
	Source string `json:"source"`
}

// Redis Redis 配置
type Redis struct {
	Addr         string   `json:"addr"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Rocketmq RocketMQ 配置
type Rocketmq struct {
	Enabled         bool     `json:"enabled"`
	NameServers     []string `json:"name_servers"`
	GroupName       string   `json:"group_name"`
	EventTopic      string   `json:"event_topic"`      // 生成完成事件主题
	ModerationTopic string   `json:"moderation_topic"` // 审核删除事件主题
	RetryTimes      int32    `json:"retry_times"`
}

// Provider 外部生成服务配置
type Provider struct {
	Endpoint string   `json:"endpoint"`
	ApiKey   string   `json:"api_key"`
	Timeout  Duration `json:"timeout"`
}

// Credit 信用点业务配置
type Credit struct {
	DefaultDailyCap     int32    `json:"default_daily_cap"`     // 散客每日生成上限
	BalanceLowThreshold int32    `json:"balance_low_threshold"` // 余额低告警阈值（信用点数）
	RefundTimeout       Duration `json:"refund_timeout"`        // 退款落库超时
}
