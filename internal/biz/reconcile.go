package biz

import (
	"context"
	"fmt"

	"photogen-service/internal/constants"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ReconcileRepo 对账数据层接口（定义在 biz 层）
type ReconcileRepo interface {
	// ListAccountRefs 枚举全部持有余额行的账户（合作方、活动、散客档案）
	ListAccountRefs(ctx context.Context) ([]AccountRef, error)
}

// ReconcileResult 单账户对账结果
type ReconcileResult struct {
	Account    AccountRef
	Consistent bool
	// Expected/Actual 为发现漂移的那一侧数值，Consistent 时两者相等
	Expected int
	Actual   int
	Detail   string
}

// ReconcileUseCase 余额与流水对账
//
// 账本是事实来源，计数器是缓存视图；各类型的校验公式：
//   partner(行):   credits_total == TopUp 合计, credits_used == -(Allocation+Usage+Refund)
//   partner(虚拟): credits == 全部流水净和
//   consumer:      credits == 全部流水净和
//   event:         credits_used == -(Usage+Refund)（allocated 只在合作方侧留痕，不做推导）
type ReconcileUseCase struct {
	wallet  WalletRepo
	repo    ReconcileRepo
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewReconcileUseCase 创建对账 UseCase
func NewReconcileUseCase(wallet WalletRepo, repo ReconcileRepo, logger log.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{
		wallet:  wallet,
		repo:    repo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// ReconcileAccount 校验单个账户的余额行与流水是否一致
func (uc *ReconcileUseCase) ReconcileAccount(ctx context.Context, ref AccountRef) (*ReconcileResult, error) {
	balance, err := uc.wallet.GetBalance(ctx, ref)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, apperrors.NewAccountNotFound("account not found: " + ref.String())
	}

	totals, err := uc.wallet.FoldTransactions(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Account: ref, Consistent: true}
	switch {
	case ref.Kind == AccountKindPartner && !balance.Virtual:
		if balance.Total != totals.TopUp {
			result.Consistent = false
			result.Expected = totals.TopUp
			result.Actual = balance.Total
			result.Detail = "credits_total does not match top-up ledger sum"
			break
		}
		expectedUsed := -(totals.Allocation + totals.Usage + totals.Refund)
		if balance.Used != expectedUsed {
			result.Consistent = false
			result.Expected = expectedUsed
			result.Actual = balance.Used
			result.Detail = "credits_used does not match ledger consumption"
		}
	case ref.Kind == AccountKindPartner || ref.Kind == AccountKindConsumer:
		// 虚拟合作方与散客共用同一个档案计数器，
		// 流水可能同时落在 partner 与 consumer 两个 kind 下，需要合并净和
		expected, err := uc.profileLedgerNet(ctx, ref, totals)
		if err != nil {
			return nil, err
		}
		if balance.Total != expected {
			result.Consistent = false
			result.Expected = expected
			result.Actual = balance.Total
			result.Detail = "credits does not match ledger net sum"
		}
	case ref.Kind == AccountKindEvent:
		expectedUsed := -(totals.Usage + totals.Refund)
		if balance.Used != expectedUsed {
			result.Consistent = false
			result.Expected = expectedUsed
			result.Actual = balance.Used
			result.Detail = "credits_used does not match ledger consumption"
		}
	default:
		return nil, fmt.Errorf("unknown account kind: %s", ref.Kind)
	}

	if !result.Consistent {
		uc.log.Errorf("Reconcile drift: account=%s, expected=%d, actual=%d, detail=%s",
			ref.String(), result.Expected, result.Actual, result.Detail)
	}
	return result, nil
}

// profileLedgerNet 计算用户档案的期望余额（两个 kind 下流水的合并净和）
// 散客引用需要确认同 ID 的 partner 流水确实属于本档案
// （存在同 ID 正式合作方行时，partner 流水归正式行所有）
func (uc *ReconcileUseCase) profileLedgerNet(ctx context.Context, ref AccountRef, totals *LedgerTotals) (int, error) {
	other := AccountRef{Kind: AccountKindConsumer, ID: ref.ID}
	if ref.Kind == AccountKindConsumer {
		other.Kind = AccountKindPartner
		pb, err := uc.wallet.GetBalance(ctx, other)
		if err != nil {
			return 0, err
		}
		if pb == nil || !pb.Virtual {
			return totals.Net, nil
		}
	}

	otherTotals, err := uc.wallet.FoldTransactions(ctx, other)
	if err != nil {
		return 0, err
	}
	return totals.Net + otherTotals.Net, nil
}

// ReconcileAll 对全部账户执行对账，返回不一致的账户列表
// 供定时任务与运维接口调用；单账户失败不中断整轮
func (uc *ReconcileUseCase) ReconcileAll(ctx context.Context) ([]*ReconcileResult, error) {
	refs, err := uc.repo.ListAccountRefs(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []*ReconcileResult
	errCount := 0
	for _, ref := range refs {
		result, err := uc.ReconcileAccount(ctx, ref)
		if err != nil {
			errCount++
			uc.log.Errorf("ReconcileAccount failed: account=%s, error=%v", ref.String(), err)
			continue
		}
		if !result.Consistent {
			drifted = append(drifted, result)
		}
	}

	if uc.metrics != nil {
		if len(drifted) == 0 && errCount == 0 {
			uc.metrics.ReconcileTotal.WithLabelValues(constants.ReconcileResultConsistent).Inc()
		} else {
			uc.metrics.ReconcileTotal.WithLabelValues(constants.ReconcileResultDrift).Inc()
		}
		uc.metrics.ReconcileDrift.Set(float64(len(drifted)))
	}

	uc.log.Infof("Reconcile finished: accounts=%d, drifted=%d, errors=%d", len(refs), len(drifted), errCount)
	return drifted, nil
}
