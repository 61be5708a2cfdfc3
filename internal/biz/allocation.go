package biz

import (
	"context"
	"fmt"
	"time"

	"photogen-service/internal/constants"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// AllocationRepo 划拨数据层接口（定义在 biz 层）
// 合作方操作必须同时支持正式合作方行与虚拟合作方（用户档案兜底），
// 变体的选择发生在数据层解析账户时，调用方不感知
type AllocationRepo interface {
	// TopUpPartner 为合作方增加批发额度并写 topup 流水；首次充值自动创建账户行
	TopUpPartner(ctx context.Context, partnerID string, amount int, description string) error
	// TopUpConsumer 为散客增加信用点并写 topup 流水（注册赠送/自购入口）
	TopUpConsumer(ctx context.Context, uid string, amount int, description string) error
	// AllocateToEvent 从合作方可用余额向活动划拨；余额不足返回 false, nil。
	// 合作方余额检查与活动额度增加在同一个事务内完成
	AllocateToEvent(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error)
	// CreateEventWithAllocation 创建活动并完成首次划拨，二者同进退；
	// 划拨失败时活动不会被创建，返回 false, nil
	CreateEventWithAllocation(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error)
}

// AllocationUseCase 划拨业务逻辑
type AllocationUseCase struct {
	repo    AllocationRepo
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewAllocationUseCase 创建划拨 UseCase
func NewAllocationUseCase(repo AllocationRepo, logger log.Logger) *AllocationUseCase {
	return &AllocationUseCase{
		repo:    repo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// TopUpPartner 合作方充值
func (uc *AllocationUseCase) TopUpPartner(ctx context.Context, partnerID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewInvalidAmount(fmt.Sprintf("top-up amount must be positive, got %d", amount))
	}

	desc := fmt.Sprintf("top-up %d credits", amount)
	if err := uc.repo.TopUpPartner(ctx, partnerID, amount, desc); err != nil {
		uc.log.Errorf("TopUpPartner failed: partner_id=%s, amount=%d, error=%v", partnerID, amount, err)
		return err
	}

	if uc.metrics != nil {
		uc.metrics.TopUpAmount.WithLabelValues(constants.AccountKindPartner).Add(float64(amount))
	}
	uc.log.Infof("Partner topped up: partner_id=%s, amount=%d", partnerID, amount)
	return nil
}

// TopUpConsumer 散客充值（注册赠送、自购）
func (uc *AllocationUseCase) TopUpConsumer(ctx context.Context, uid string, amount int) error {
	if amount <= 0 {
		return apperrors.NewInvalidAmount(fmt.Sprintf("top-up amount must be positive, got %d", amount))
	}

	desc := fmt.Sprintf("top-up %d credits", amount)
	if err := uc.repo.TopUpConsumer(ctx, uid, amount, desc); err != nil {
		uc.log.Errorf("TopUpConsumer failed: uid=%s, amount=%d, error=%v", uid, amount, err)
		return err
	}

	if uc.metrics != nil {
		uc.metrics.TopUpAmount.WithLabelValues(constants.AccountKindConsumer).Add(float64(amount))
	}
	return nil
}

// AllocateToEvent 合作方向活动划拨信用点
// 划拨等同于合作方消费：合作方 credits_used 增加，活动 credits_allocated 增加
func (uc *AllocationUseCase) AllocateToEvent(ctx context.Context, partnerID, eventID string, amount int) error {
	if amount <= 0 {
		return apperrors.NewInvalidAmount(fmt.Sprintf("allocation amount must be positive, got %d", amount))
	}

	startTime := time.Now()
	desc := fmt.Sprintf("allocate %d credits to event %s", amount, eventID)
	ok, err := uc.repo.AllocateToEvent(ctx, partnerID, eventID, amount, desc)

	if uc.metrics != nil {
		uc.metrics.AllocationDuration.Observe(time.Since(startTime).Seconds())
	}
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.AllocationTotal.WithLabelValues("error").Inc()
		}
		uc.log.Errorf("AllocateToEvent failed: partner_id=%s, event_id=%s, amount=%d, error=%v", partnerID, eventID, amount, err)
		return err
	}
	if !ok {
		if uc.metrics != nil {
			uc.metrics.AllocationTotal.WithLabelValues("insufficient").Inc()
		}
		return apperrors.NewAllocationExceedsBalance(
			fmt.Sprintf("allocation of %d credits exceeds available balance of partner %s", amount, partnerID))
	}

	if uc.metrics != nil {
		uc.metrics.AllocationTotal.WithLabelValues("success").Inc()
		uc.metrics.AllocationAmount.Add(float64(amount))
	}
	uc.log.Infof("Allocated to event: partner_id=%s, event_id=%s, amount=%d", partnerID, eventID, amount)
	return nil
}

// CreateEvent 创建活动并完成首次划拨（全有或全无）
func (uc *AllocationUseCase) CreateEvent(ctx context.Context, partnerID string, initialAllocation int) (string, error) {
	if initialAllocation <= 0 {
		return "", apperrors.NewInvalidAmount(fmt.Sprintf("initial allocation must be positive, got %d", initialAllocation))
	}

	eventID := uuid.New().String()
	desc := fmt.Sprintf("allocate %d credits to new event %s", initialAllocation, eventID)
	ok, err := uc.repo.CreateEventWithAllocation(ctx, partnerID, eventID, initialAllocation, desc)
	if err != nil {
		uc.log.Errorf("CreateEvent failed: partner_id=%s, amount=%d, error=%v", partnerID, initialAllocation, err)
		return "", err
	}
	if !ok {
		if uc.metrics != nil {
			uc.metrics.AllocationTotal.WithLabelValues("insufficient").Inc()
		}
		return "", apperrors.NewAllocationExceedsBalance(
			fmt.Sprintf("initial allocation of %d credits exceeds available balance of partner %s", initialAllocation, partnerID))
	}

	if uc.metrics != nil {
		uc.metrics.AllocationTotal.WithLabelValues("success").Inc()
		uc.metrics.AllocationAmount.Add(float64(initialAllocation))
	}
	uc.log.Infof("Event created: partner_id=%s, event_id=%s, initial_allocation=%d", partnerID, eventID, initialAllocation)
	return eventID, nil
}
