package constants

// 时间格式常量
const (
	// TimeFormatDay 日期格式 (YYYY-MM-DD)，散客每日上限的统计窗口
	TimeFormatDay = "2006-01-02"
)

// Redis Key 前缀常量
const (
	// RedisKeyBalance 余额缓存 key 前缀（balance:{kind}:{id}）
	RedisKeyBalance = "balance:"
	// RedisKeyDailyCount 每日生成次数缓存 key 前缀（gencount:{kind}:{id}:{day}）
	RedisKeyDailyCount = "gencount:"
	// RedisKeyWalletLock 钱包扣减锁 key 前缀
	RedisKeyWalletLock = "wallet:lock:"
	// RedisKeyAllocLock 划拨锁 key 前缀
	RedisKeyAllocLock = "alloc:lock:"
)

// 账户类型常量
const (
	// AccountKindPartner 合作方批发账户
	AccountKindPartner = "partner"
	// AccountKindEvent 活动子钱包
	AccountKindEvent = "event"
	// AccountKindConsumer 散客账户
	AccountKindConsumer = "consumer"
)

// 流水类型常量
const (
	// TxKindTopUp 充值
	TxKindTopUp = "topup"
	// TxKindAllocation 合作方向活动划拨
	TxKindAllocation = "allocation"
	// TxKindUsage 生成扣减
	TxKindUsage = "usage"
	// TxKindRefund 生成失败退还
	TxKindRefund = "refund"
)

// 生成结果常量（用于指标）
const (
	// GenerationResultCommitted 生成成功并落库
	GenerationResultCommitted = "committed"
	// GenerationResultRefunded 生成失败已退还
	GenerationResultRefunded = "refunded"
	// GenerationResultRateLimited 触发每日上限
	GenerationResultRateLimited = "rate_limited"
	// GenerationResultNoCredits 余额不足
	GenerationResultNoCredits = "no_credits"
	// GenerationResultRefundFailed 退还失败（需人工对账）
	GenerationResultRefundFailed = "refund_failed"
)

// 限流检查结果常量
const (
	// RateLimitResultAllowed 允许
	RateLimitResultAllowed = "allowed"
	// RateLimitResultDenied 拒绝
	RateLimitResultDenied = "denied"
)

// 锁结果常量
const (
	// LockResultSuccess 加锁成功
	LockResultSuccess = "success"
	// LockResultFailed 加锁失败
	LockResultFailed = "failed"
)

// 对账结果常量
const (
	// ReconcileResultConsistent 账实一致
	ReconcileResultConsistent = "consistent"
	// ReconcileResultDrift 账实不符
	ReconcileResultDrift = "drift"
)
