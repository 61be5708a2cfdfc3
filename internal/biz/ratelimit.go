package biz

import (
	"context"
	"time"

	"photogen-service/internal/constants"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ConsumerProfile 散客账户档案
type ConsumerProfile struct {
	UID              string
	Credits          int
	TotalGenerations int
	DailyCap         int
	Unlimited        bool // 特权账户不受每日上限约束
}

// RateLimitRepo 限流数据层接口（定义在 biz 层）
type RateLimitRepo interface {
	// GetConsumerProfile 获取散客档案；不存在返回 nil, nil
	GetConsumerProfile(ctx context.Context, uid string) (*ConsumerProfile, error)
	// CountGenerationsBetween 统计 [from, to) 内成功的生成记录数
	CountGenerationsBetween(ctx context.Context, ref AccountRef, from, to time.Time) (int, error)
}

// RateLimitUseCase 每日生成上限检查
// 只对散客账户生效；合作方/活动没有每日上限。
// 检查发生在预扣之前，本身不占用信用点
type RateLimitUseCase struct {
	repo    RateLimitRepo
	conf    *CreditConfig
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewRateLimitUseCase 创建限流 UseCase
func NewRateLimitUseCase(repo RateLimitRepo, conf *CreditConfig, logger log.Logger) *RateLimitUseCase {
	return &RateLimitUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Check 检查账户在 now 所在自然日内是否还允许生成
// 返回 false 表示已达每日上限
func (uc *RateLimitUseCase) Check(ctx context.Context, ref AccountRef, now time.Time) (bool, error) {
	if ref.Kind != AccountKindConsumer {
		return true, nil
	}

	profile, err := uc.repo.GetConsumerProfile(ctx, ref.ID)
	if err != nil {
		return false, err
	}
	if profile == nil {
		return false, apperrors.NewAccountNotFound("consumer account not found: " + ref.ID)
	}
	if profile.Unlimited {
		return true, nil
	}

	limit := profile.DailyCap
	if limit <= 0 {
		limit = uc.conf.DefaultDailyCap
	}

	// 统计窗口为单一全局自然日边界，不做按账户时区
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	count, err := uc.repo.CountGenerationsBetween(ctx, ref, dayStart, dayEnd)
	if err != nil {
		return false, err
	}

	allowed := count < limit
	if uc.metrics != nil {
		if allowed {
			uc.metrics.RateLimitCheckTotal.WithLabelValues(constants.RateLimitResultAllowed).Inc()
		} else {
			uc.metrics.RateLimitCheckTotal.WithLabelValues(constants.RateLimitResultDenied).Inc()
		}
	}
	return allowed, nil
}
