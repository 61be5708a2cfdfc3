package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photogen-service/internal/constants"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// GenerationRequest 一次生成请求的输入，解析前不落库
type GenerationRequest struct {
	Account        AccountRef
	StyleID        string
	SourceImageURL string
	ClientIP       string
}

// GenerationRecord 生成记录领域对象，仅在成功提交时创建
type GenerationRecord struct {
	ID             string
	Account        AccountRef
	EventID        string // 活动生成时为活动ID，散客为空
	StyleID        string
	SourceImageURL string
	ImageURL       string
	ClientIP       string
	CreatedAt      time.Time
}

// GenerationRepo 生成记录数据层接口（定义在 biz 层）
type GenerationRepo interface {
	CreateGenerationRecord(ctx context.Context, record *GenerationRecord) error
	// IncrementTotalGenerations 累加账户的生涯生成计数（目前仅散客档案持有该计数）
	IncrementTotalGenerations(ctx context.Context, ref AccountRef) error
	ListGenerationRecords(ctx context.Context, ref AccountRef, page, pageSize int) ([]*GenerationRecord, int64, error)
	// ListEventGenerationRecords 按创建顺序取活动的生成记录（风格榜单用）
	ListEventGenerationRecords(ctx context.Context, eventID string, limit int) ([]*GenerationRecord, error)
	// DeleteGenerationRecord 审核删除；记录不存在返回 false, nil
	DeleteGenerationRecord(ctx context.Context, recordID string) (bool, error)
}

// GenerationUseCase 生成编排器
//
// 状态机：Idle -> Checking -> Reserved -> Invoking -> Committed | Refunded -> Idle
// 预扣是悲观扣减而非两阶段冻结（外部生成服务没有 cancel/authorize 原语）；
// 预扣与退还是两次各自原子的账本操作，中间的慢调用不持有任何锁。
// 编排器自身没有重试循环，调用方可以用新请求重试
type GenerationUseCase struct {
	wallet    WalletRepo
	repo      GenerationRepo
	limiter   *RateLimitUseCase
	provider  ProviderClient
	publisher GenerationEventPublisher
	conf      *CreditConfig
	log       *log.Helper
	metrics   *metrics.PhotogenMetrics
}

// NewGenerationUseCase 创建生成编排 UseCase
func NewGenerationUseCase(
	wallet WalletRepo,
	repo GenerationRepo,
	limiter *RateLimitUseCase,
	provider ProviderClient,
	publisher GenerationEventPublisher,
	conf *CreditConfig,
	logger log.Logger,
) *GenerationUseCase {
	return &GenerationUseCase{
		wallet:    wallet,
		repo:      repo,
		limiter:   limiter,
		provider:  provider,
		publisher: publisher,
		conf:      conf,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Generate 执行一次完整的生成请求
//
// 调用方视角是同步的：返回时要么拿到生成记录（信用点已永久扣除），
// 要么拿到错误且余额已恢复到请求前的值；唯一的例外是 RefundFailed，
// 它表示退还落库失败、需要人工对账，绝不能被映射为成功
func (uc *GenerationUseCase) Generate(ctx context.Context, req *GenerationRequest) (*GenerationRecord, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.GenerationDuration.WithLabelValues("total").Observe(time.Since(startTime).Seconds())
		}
	}()

	// 1. Checking：每日上限检查（不写任何流水）
	allowed, err := uc.limiter.Check(ctx, req.Account, time.Now())
	if err != nil {
		return nil, err
	}
	if !allowed {
		uc.observeResult(req.StyleID, constants.GenerationResultRateLimited)
		return nil, apperrors.NewRateLimited("daily generation cap exceeded for account " + req.Account.String())
	}

	// 2. Reserved：先扣后调，usage 流水 -1
	reserveStart := time.Now()
	ok, err := uc.wallet.Debit(ctx, req.Account, 1, "generation reservation, style "+req.StyleID)
	if uc.metrics != nil {
		uc.metrics.GenerationDuration.WithLabelValues("reserve").Observe(time.Since(reserveStart).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		if uc.metrics != nil {
			uc.metrics.ReserveTotal.WithLabelValues(string(req.Account.Kind), "insufficient").Inc()
		}
		uc.observeResult(req.StyleID, constants.GenerationResultNoCredits)
		return nil, apperrors.NewInsufficientCredits("no credits available for account " + req.Account.String())
	}
	if uc.metrics != nil {
		uc.metrics.ReserveTotal.WithLabelValues(string(req.Account.Kind), "success").Inc()
	}

	// 3. Invoking：慢调用，可被调用方超时/取消，期间不改任何账本状态
	invokeStart := time.Now()
	reply, err := uc.provider.GenerateImage(ctx, &GenerateImageRequest{
		SourceImageURL: req.SourceImageURL,
		StyleID:        req.StyleID,
		AccountRef:     req.Account.String(),
	})
	if uc.metrics != nil {
		uc.metrics.GenerationDuration.WithLabelValues("invoke").Observe(time.Since(invokeStart).Seconds())
	}
	if err != nil {
		// 4a. Refunded：失败、超时、取消都走退还
		if rerr := uc.refund(req.Account, refundDescription(err)); rerr != nil {
			uc.observeResult(req.StyleID, constants.GenerationResultRefundFailed)
			return nil, rerr
		}
		uc.observeResult(req.StyleID, constants.GenerationResultRefunded)
		if apperrors.IsProviderFailure(err) {
			return nil, err
		}
		return nil, apperrors.NewProviderFailure("generation provider call failed", err)
	}

	// 4b. Committed：写生成记录，预扣转为永久扣除
	record := &GenerationRecord{
		ID:             uuid.New().String(),
		Account:        req.Account,
		StyleID:        req.StyleID,
		SourceImageURL: req.SourceImageURL,
		ImageURL:       reply.ImageURL,
		ClientIP:       req.ClientIP,
		CreatedAt:      time.Now(),
	}
	if req.Account.Kind == AccountKindEvent {
		record.EventID = req.Account.ID
	}
	if err := uc.repo.CreateGenerationRecord(ctx, record); err != nil {
		// 记录写入失败同样回到请求前余额，图片生成成本由平台承担
		if rerr := uc.refund(req.Account, "record write failed after generation"); rerr != nil {
			uc.observeResult(req.StyleID, constants.GenerationResultRefundFailed)
			return nil, rerr
		}
		uc.observeResult(req.StyleID, constants.GenerationResultRefunded)
		return nil, err
	}

	// 生涯计数失败不影响本次请求结果
	if err := uc.repo.IncrementTotalGenerations(ctx, req.Account); err != nil {
		uc.log.Warnf("IncrementTotalGenerations failed: account=%s, error=%v", req.Account.String(), err)
	}

	// 发布生成完成事件（尽力而为）
	if uc.publisher != nil {
		if err := uc.publisher.PublishGenerationEvent(ctx, &GenerationEvent{
			RecordID:    record.ID,
			AccountKind: string(record.Account.Kind),
			AccountID:   record.Account.ID,
			EventID:     record.EventID,
			StyleID:     record.StyleID,
			ImageURL:    record.ImageURL,
			CreatedAt:   record.CreatedAt,
		}); err != nil {
			uc.log.Warnf("PublishGenerationEvent failed: record_id=%s, error=%v", record.ID, err)
		}
	}

	uc.observeResult(req.StyleID, constants.GenerationResultCommitted)
	return record, nil
}

// refund 退还预扣的 1 个信用点
// 使用独立 context：调用方已取消的请求也必须到达 Refunded 终态；
// 退还本身失败时返回 RefundFailed，记录日志等待人工对账，不做无限重试
func (uc *GenerationUseCase) refund(ref AccountRef, description string) error {
	refundCtx, cancel := context.WithTimeout(context.Background(), uc.conf.RefundTimeout)
	defer cancel()

	if err := uc.wallet.Refund(refundCtx, ref, 1, description); err != nil {
		uc.log.Errorf("REFUND FAILED, manual reconciliation required: account=%s, reason=%q, error=%v",
			ref.String(), description, err)
		if uc.metrics != nil {
			uc.metrics.RefundFailedTotal.Inc()
			uc.metrics.RefundTotal.WithLabelValues(string(ref.Kind), "failed").Inc()
		}
		return apperrors.NewRefundFailed("failed to refund reserved credit for account "+ref.String(), err)
	}
	if uc.metrics != nil {
		uc.metrics.RefundTotal.WithLabelValues(string(ref.Kind), "success").Inc()
	}
	return nil
}

// refundDescription 在流水描述里区分失败类别，账本是唯一的持久痕迹
func refundDescription(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "refund: provider call timed out"
	case errors.Is(err, context.Canceled):
		return "refund: provider call cancelled"
	default:
		return fmt.Sprintf("refund: provider failure: %v", err)
	}
}

func (uc *GenerationUseCase) observeResult(styleID, result string) {
	if uc.metrics != nil {
		uc.metrics.GenerationTotal.WithLabelValues(styleID, result).Inc()
	}
}

// ListRecords 获取账户的生成记录
func (uc *GenerationUseCase) ListRecords(ctx context.Context, ref AccountRef, page, pageSize int) ([]*GenerationRecord, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return uc.repo.ListGenerationRecords(ctx, ref, page, pageSize)
}

// TopStyles 活动的风格热度榜单
func (uc *GenerationUseCase) TopStyles(ctx context.Context, eventID string, limit int) ([]StyleCount, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := uc.repo.ListEventGenerationRecords(ctx, eventID, 0)
	if err != nil {
		return nil, err
	}
	return TopStyles(records, limit), nil
}

// DeleteRecord 审核删除生成记录（外部审核方通过 MQ 调用）
// 删除不退还信用点
func (uc *GenerationUseCase) DeleteRecord(ctx context.Context, recordID string) error {
	found, err := uc.repo.DeleteGenerationRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !found {
		uc.log.Warnf("DeleteRecord: record not found: %s", recordID)
	}
	return nil
}
