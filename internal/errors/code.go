package errors

import (
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Photogen Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Photogen 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   01: 钱包模块
//   02: 划拨模块
//   03: 限流模块
//   04: 生成模块
//   05: 对账模块
//   06-99: 预留扩展

// 钱包模块错误码 (210100-210199)
const (
	// ErrCodeAccountNotFound 账户不存在
	ErrCodeAccountNotFound = 210101
	// ErrCodeInsufficientCredits 余额不足
	ErrCodeInsufficientCredits = 210102
	// ErrCodeWalletTxFailed 钱包流水写入失败
	ErrCodeWalletTxFailed = 210103
	// ErrCodeWalletLockFailed 获取钱包锁失败
	ErrCodeWalletLockFailed = 210104
)

// 划拨模块错误码 (210200-210299)
const (
	// ErrCodeInvalidAmount 金额非法（必须为正数）
	ErrCodeInvalidAmount = 210201
	// ErrCodeAllocationExceedsBalance 划拨超出合作方可用余额
	ErrCodeAllocationExceedsBalance = 210202
	// ErrCodeEventAlreadyExists 活动已存在
	ErrCodeEventAlreadyExists = 210203
	// ErrCodeEventCreateFailed 活动创建失败
	ErrCodeEventCreateFailed = 210204
)

// 限流模块错误码 (210300-210399)
const (
	// ErrCodeRateLimited 触发每日生成上限
	ErrCodeRateLimited = 210301
)

// 生成模块错误码 (210400-210499)
const (
	// ErrCodeProviderFailure 外部生成服务失败（含超时/取消/网络错误）
	ErrCodeProviderFailure = 210401
	// ErrCodeRefundFailed 退还失败，需人工对账
	ErrCodeRefundFailed = 210402
	// ErrCodeRecordCreateFailed 生成记录写入失败
	ErrCodeRecordCreateFailed = 210403
	// ErrCodeProviderConfigNil 生成服务配置为空
	ErrCodeProviderConfigNil = 210404
	// ErrCodeProviderDialFailed 连接生成服务失败
	ErrCodeProviderDialFailed = 210405
)

// 对账模块错误码 (210500-210599)
const (
	// ErrCodeReconcileFailed 对账失败
	ErrCodeReconcileFailed = 210501
)

// 错误 reason 常量（稳定标识，跨服务排查用）
const (
	ReasonAccountNotFound          = "ACCOUNT_NOT_FOUND"
	ReasonInsufficientCredits      = "INSUFFICIENT_CREDITS"
	ReasonInvalidAmount            = "INVALID_AMOUNT"
	ReasonAllocationExceedsBalance = "ALLOCATION_EXCEEDS_BALANCE"
	ReasonEventAlreadyExists       = "EVENT_ALREADY_EXISTS"
	ReasonRateLimited              = "RATE_LIMITED"
	ReasonProviderFailure          = "PROVIDER_FAILURE"
	ReasonProviderConfigNil        = "PROVIDER_CONFIG_NIL"
	ReasonProviderDialFailed       = "PROVIDER_DIAL_FAILED"
	ReasonRefundFailed             = "REFUND_FAILED"
	ReasonWalletLockFailed         = "WALLET_LOCK_FAILED"
)

// NewAccountNotFound 账户不存在
func NewAccountNotFound(msg string) error {
	return kerrors.NotFound(ReasonAccountNotFound, msg).WithMetadata(codeMeta(ErrCodeAccountNotFound))
}

// NewInsufficientCredits 余额不足
func NewInsufficientCredits(msg string) error {
	return kerrors.New(402, ReasonInsufficientCredits, msg).WithMetadata(codeMeta(ErrCodeInsufficientCredits))
}

// NewInvalidAmount 金额非法
func NewInvalidAmount(msg string) error {
	return kerrors.BadRequest(ReasonInvalidAmount, msg).WithMetadata(codeMeta(ErrCodeInvalidAmount))
}

// NewAllocationExceedsBalance 划拨超出可用余额
func NewAllocationExceedsBalance(msg string) error {
	return kerrors.New(402, ReasonAllocationExceedsBalance, msg).WithMetadata(codeMeta(ErrCodeAllocationExceedsBalance))
}

// NewEventAlreadyExists 活动已存在
func NewEventAlreadyExists(msg string) error {
	return kerrors.Conflict(ReasonEventAlreadyExists, msg).WithMetadata(codeMeta(ErrCodeEventAlreadyExists))
}

// NewRateLimited 触发每日生成上限
func NewRateLimited(msg string) error {
	return kerrors.New(429, ReasonRateLimited, msg).WithMetadata(codeMeta(ErrCodeRateLimited))
}

// NewProviderFailure 外部生成服务失败（保留原始错误用于排查）
func NewProviderFailure(msg string, cause error) error {
	return kerrors.New(502, ReasonProviderFailure, msg).WithCause(cause).WithMetadata(codeMeta(ErrCodeProviderFailure))
}

// NewProviderConfigNil 生成服务配置为空
func NewProviderConfigNil(msg string) error {
	return kerrors.InternalServer(ReasonProviderConfigNil, msg).WithMetadata(codeMeta(ErrCodeProviderConfigNil))
}

// NewProviderDialFailed 连接生成服务失败
func NewProviderDialFailed(msg string, cause error) error {
	return kerrors.ServiceUnavailable(ReasonProviderDialFailed, msg).WithCause(cause).WithMetadata(codeMeta(ErrCodeProviderDialFailed))
}

// NewRefundFailed 退还失败（致命，需人工对账，绝不能映射为成功）
func NewRefundFailed(msg string, cause error) error {
	return kerrors.InternalServer(ReasonRefundFailed, msg).WithCause(cause).WithMetadata(codeMeta(ErrCodeRefundFailed))
}

// NewWalletLockFailed 获取钱包锁失败
func NewWalletLockFailed(msg string) error {
	return kerrors.ServiceUnavailable(ReasonWalletLockFailed, msg).WithMetadata(codeMeta(ErrCodeWalletLockFailed))
}

// IsAccountNotFound 判断账户不存在
func IsAccountNotFound(err error) bool { return kerrors.Reason(err) == ReasonAccountNotFound }

// IsInsufficientCredits 判断余额不足
func IsInsufficientCredits(err error) bool { return kerrors.Reason(err) == ReasonInsufficientCredits }

// IsAllocationExceedsBalance 判断划拨超额
func IsAllocationExceedsBalance(err error) bool {
	return kerrors.Reason(err) == ReasonAllocationExceedsBalance
}

// IsRateLimited 判断触发每日上限
func IsRateLimited(err error) bool { return kerrors.Reason(err) == ReasonRateLimited }

// IsProviderFailure 判断外部生成服务失败
func IsProviderFailure(err error) bool { return kerrors.Reason(err) == ReasonProviderFailure }

// IsRefundFailed 判断退还失败
func IsRefundFailed(err error) bool { return kerrors.Reason(err) == ReasonRefundFailed }

func codeMeta(code int) map[string]string {
	return map[string]string{"biz_code": strconv.Itoa(code)}
}
