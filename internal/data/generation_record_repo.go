package data

import (
	"context"
	"fmt"

	"photogen-service/internal/biz"
	"photogen-service/internal/constants"
	"photogen-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// incrIfExistsScript 仅在 key 存在时递增，避免在缓存未加载时落下错误基数
const incrIfExistsScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
    return redis.call('INCR', KEYS[1])
end
return -1
`

// generationRepo 生成记录数据访问，实现 biz.GenerationRepo 接口
type generationRepo struct {
	data *Data
	log  *log.Helper
}

// NewGenerationRepo 创建生成记录 repo（返回 biz.GenerationRepo 接口）
func NewGenerationRepo(data *Data, logger log.Logger) biz.GenerationRepo {
	return &generationRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// dailyCountKey 每日生成次数缓存 key（gencount:{kind}:{id}:{day}）
func dailyCountKey(ref biz.AccountRef, day string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisKeyDailyCount, ref.String(), day)
}

// CreateGenerationRecord 写入生成记录
func (r *generationRepo) CreateGenerationRecord(ctx context.Context, record *biz.GenerationRecord) error {
	m := model.GenerationRecord{
		GenerationRecordID: record.ID,
		AccountKind:        string(record.Account.Kind),
		AccountID:          record.Account.ID,
		EventID:            record.EventID,
		StyleID:            record.StyleID,
		SourceImageURL:     record.SourceImageURL,
		ImageURL:           record.ImageURL,
		ClientIP:           record.ClientIP,
		CreatedAt:          record.CreatedAt,
	}
	if err := r.data.db.WithContext(ctx).Create(&m).Error; err != nil {
		r.log.Errorf("CreateGenerationRecord failed: record_id=%s, error=%v", record.ID, err)
		return fmt.Errorf("failed to create generation record: %w", err)
	}

	// 递增当日计数缓存（仅当缓存已加载时）
	cacheCtx, cancel := detachedCacheCtx()
	defer cancel()
	day := record.CreatedAt.Format(constants.TimeFormatDay)
	if err := r.data.rdb.Eval(cacheCtx, incrIfExistsScript, []string{dailyCountKey(record.Account, day)}).Err(); err != nil {
		r.log.Warnf("failed to bump daily count cache: account=%s, error=%v", record.Account.String(), err)
	}

	return nil
}

// IncrementTotalGenerations 累加生涯生成计数
// 只有用户档案持有该计数；活动账户没有档案，直接跳过
func (r *generationRepo) IncrementTotalGenerations(ctx context.Context, ref biz.AccountRef) error {
	if ref.Kind == biz.AccountKindEvent {
		return nil
	}
	return r.data.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("uid = ?", ref.ID).
		Update("total_generations", gorm.Expr("total_generations + 1")).Error
}

// ListGenerationRecords 按时间倒序分页获取账户的生成记录
func (r *generationRepo) ListGenerationRecords(ctx context.Context, ref biz.AccountRef, page, pageSize int) ([]*biz.GenerationRecord, int64, error) {
	db := r.data.db.WithContext(ctx).Model(&model.GenerationRecord{}).
		Where("account_kind = ? AND account_id = ?", ref.Kind, ref.ID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count generation records: %w", err)
	}

	var rows []model.GenerationRecord
	if err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query generation records: %w", err)
	}

	result := make([]*biz.GenerationRecord, 0, len(rows))
	for i := range rows {
		result = append(result, toBizGenerationRecord(&rows[i]))
	}
	return result, total, nil
}

// ListEventGenerationRecords 按创建顺序获取活动的生成记录；limit 为 0 时不限制
func (r *generationRepo) ListEventGenerationRecords(ctx context.Context, eventID string, limit int) ([]*biz.GenerationRecord, error) {
	db := r.data.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []model.GenerationRecord
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query event generation records: %w", err)
	}

	result := make([]*biz.GenerationRecord, 0, len(rows))
	for i := range rows {
		result = append(result, toBizGenerationRecord(&rows[i]))
	}
	return result, nil
}

// DeleteGenerationRecord 删除生成记录；记录不存在返回 false, nil
func (r *generationRepo) DeleteGenerationRecord(ctx context.Context, recordID string) (bool, error) {
	res := r.data.db.WithContext(ctx).
		Where("generation_record_id = ?", recordID).
		Delete(&model.GenerationRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete generation record: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func toBizGenerationRecord(m *model.GenerationRecord) *biz.GenerationRecord {
	return &biz.GenerationRecord{
		ID:             m.GenerationRecordID,
		Account:        biz.AccountRef{Kind: biz.AccountKind(m.AccountKind), ID: m.AccountID},
		EventID:        m.EventID,
		StyleID:        m.StyleID,
		SourceImageURL: m.SourceImageURL,
		ImageURL:       m.ImageURL,
		ClientIP:       m.ClientIP,
		CreatedAt:      m.CreatedAt,
	}
}
