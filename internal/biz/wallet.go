package biz

import (
	"context"
	"time"

	"photogen-service/internal/constants"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// AccountKind 账户类型
type AccountKind string

// 三级账户体系：平台售出的信用点先进入合作方批发账户，再划拨到活动子钱包；
// 散客账户自购自用，与合作方体系平行
const (
	AccountKindPartner  AccountKind = constants.AccountKindPartner
	AccountKindEvent    AccountKind = constants.AccountKindEvent
	AccountKindConsumer AccountKind = constants.AccountKindConsumer
)

// AccountRef 账户引用
type AccountRef struct {
	Kind AccountKind
	ID   string
}

// String 返回 "kind:id" 形式，用于日志与锁 key
func (r AccountRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Balance 账户余额快照
// 各类型的字段映射：
//   partner:  Total=credits_total, Used=credits_used
//   event:    Total=credits_allocated, Used=credits_used
//   consumer: Total=credits（当前可用）, Used=0
// Virtual 表示合作方引用落在了用户档案上（虚拟合作方）
type Balance struct {
	Total   int
	Used    int
	Virtual bool
}

// WalletTransaction 钱包流水领域对象
type WalletTransaction struct {
	ID          string
	AccountKind AccountKind
	AccountID   string
	Amount      int // 有符号：充值/退还为正，扣减/划拨为负
	Kind        string
	Description string
	CreatedAt   time.Time
}

// LedgerTotals 按类型折算的流水合计（对账用）
type LedgerTotals struct {
	TopUp      int // 充值合计（正数）
	Allocation int // 划拨合计（负数）
	Usage      int // 扣减合计（负数）
	Refund     int // 退还合计（正数）
	Net        int // 全部流水净和
}

// WalletRepo 钱包数据层接口（定义在 biz 层）
// Debit/Refund 必须是单次原子的「检查-写入」：锁定余额行、校验不变量、
// 更新计数并写入流水，全部在一个数据库事务内完成
type WalletRepo interface {
	// GetBalance 获取余额快照；账户不存在返回 nil, nil
	GetBalance(ctx context.Context, ref AccountRef) (*Balance, error)
	// Debit 扣减 amount 个信用点并写 usage 流水；余额不足返回 false, nil
	Debit(ctx context.Context, ref AccountRef, amount int, description string) (bool, error)
	// Refund 退还 amount 个信用点并写 refund 流水
	Refund(ctx context.Context, ref AccountRef, amount int, description string) error
	// ListTransactions 按时间倒序分页获取流水
	ListTransactions(ctx context.Context, ref AccountRef, page, pageSize int) ([]*WalletTransaction, int64, error)
	// FoldTransactions 折算账户全部流水（对账用）
	FoldTransactions(ctx context.Context, ref AccountRef) (*LedgerTotals, error)
}

// WalletUseCase 钱包业务逻辑
type WalletUseCase struct {
	repo    WalletRepo
	conf    *CreditConfig
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewWalletUseCase 创建钱包 UseCase
func NewWalletUseCase(repo WalletRepo, conf *CreditConfig, logger log.Logger) *WalletUseCase {
	return &WalletUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// GetBalance 获取余额
func (uc *WalletUseCase) GetBalance(ctx context.Context, ref AccountRef) (*Balance, error) {
	if uc.metrics != nil {
		uc.metrics.BalanceQueryTotal.Inc()
	}

	balance, err := uc.repo.GetBalance(ctx, ref)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, apperrors.NewAccountNotFound("account not found: " + ref.String())
	}

	// 余额低告警
	if uc.metrics != nil {
		if AvailableCredits(balance) < uc.conf.BalanceLowThreshold {
			uc.metrics.BalanceLowAlert.WithLabelValues(string(ref.Kind)).Set(1)
		} else {
			uc.metrics.BalanceLowAlert.WithLabelValues(string(ref.Kind)).Set(0)
		}
	}

	return balance, nil
}

// ListTransactions 获取流水列表
func (uc *WalletUseCase) ListTransactions(ctx context.Context, ref AccountRef, page, pageSize int) ([]*WalletTransaction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListTransactions(ctx, ref, page, pageSize)
}
