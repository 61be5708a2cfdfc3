package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"photogen-service/internal/biz"
	"photogen-service/internal/constants"
	"photogen-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// rateLimitRepo 限流数据访问，实现 biz.RateLimitRepo 接口
type rateLimitRepo struct {
	data *Data
	log  *log.Helper
}

// NewRateLimitRepo 创建限流 repo（返回 biz.RateLimitRepo 接口）
func NewRateLimitRepo(data *Data, logger log.Logger) biz.RateLimitRepo {
	return &rateLimitRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetConsumerProfile 获取散客档案；不存在返回 nil, nil
func (r *rateLimitRepo) GetConsumerProfile(ctx context.Context, uid string) (*biz.ConsumerProfile, error) {
	if uid == "" {
		return nil, fmt.Errorf("uid is required")
	}

	var up model.UserProfile
	if err := r.data.db.WithContext(ctx).Where("uid = ?", uid).First(&up).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetConsumerProfile failed: uid=%s, error=%v", uid, err)
		return nil, fmt.Errorf("failed to query user profile: %w", err)
	}

	return &biz.ConsumerProfile{
		UID:              up.UID,
		Credits:          up.Credits,
		TotalGenerations: up.TotalGenerations,
		DailyCap:         up.DailyCap,
		Unlimited:        up.Unlimited,
	}, nil
}

// parseDailyCount 解析缓存的当日计数；负值是回填占位哨兵，视为未命中
func parseDailyCount(cached string) (int, bool) {
	count, err := strconv.Atoi(cached)
	if err != nil || count < 0 {
		return 0, false
	}
	return count, true
}

// dailyCountSeed 回填占位哨兵
// 统计数据库前先把 key 占住，让统计期间并发提交的 INCR 落在 key 上不丢失；
// 负值表示基数尚未补齐，读方按未命中处理
const dailyCountSeed = -1 << 30

// CountGenerationsBetween 统计 [from, to) 内成功的生成记录数
// 当日窗口走 Redis 读透缓存，CreateGenerationRecord 会同步递增已加载的计数。
// 统计与 INCR 并发时计数只会偏保守（不会少计放行超限请求）
func (r *rateLimitRepo) CountGenerationsBetween(ctx context.Context, ref biz.AccountRef, from, to time.Time) (int, error) {
	day := from.Format(constants.TimeFormatDay)
	cacheKey := dailyCountKey(ref, day)

	if cached, err := r.data.rdb.Get(ctx, cacheKey).Result(); err == nil {
		if count, ok := parseDailyCount(cached); ok {
			return count, nil
		}
	}

	// 先占位再统计
	cacheCtx, cancel := detachedCacheCtx()
	defer cancel()
	seeded, seedErr := r.data.rdb.SetNX(cacheCtx, cacheKey, dailyCountSeed, 5*time.Minute).Result()
	if seedErr != nil {
		r.log.Warnf("failed to seed daily count cache: account=%s, error=%v", ref.String(), seedErr)
	}

	var count int64
	if err := r.data.db.WithContext(ctx).Model(&model.GenerationRecord{}).
		Where("account_kind = ? AND account_id = ? AND created_at >= ? AND created_at < ?",
			ref.Kind, ref.ID, from, to).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count generation records: %w", err)
	}

	// 把数据库基数补到占位值上；占位没抢到说明别的实例在回填，不重复补
	if seedErr == nil && seeded {
		if err := r.data.rdb.IncrBy(cacheCtx, cacheKey, count-dailyCountSeed).Err(); err != nil {
			r.log.Warnf("failed to backfill daily count cache: account=%s, error=%v", ref.String(), err)
		}
	}

	return int(count), nil
}
