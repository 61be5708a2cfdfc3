package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"photogen-service/internal/biz"
	"photogen-service/internal/constants"
	"photogen-service/internal/data/model"
	apperrors "photogen-service/internal/errors"
	"photogen-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// walletRepo 钱包数据访问，实现 biz.WalletRepo 接口
type walletRepo struct {
	data    *Data
	sync    *redsync.Redsync
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewWalletRepo 创建钱包 repo（返回 biz.WalletRepo 接口）
func NewWalletRepo(data *Data, sync *redsync.Redsync, logger log.Logger) biz.WalletRepo {
	return &walletRepo{
		data:    data,
		sync:    sync,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// balanceCacheKey 余额缓存 key（balance:{kind}:{id}）
func balanceCacheKey(ref biz.AccountRef) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisKeyBalance, ref.Kind, ref.ID)
}

// GetBalance 获取余额快照；账户不存在返回 nil, nil
func (r *walletRepo) GetBalance(ctx context.Context, ref biz.AccountRef) (*biz.Balance, error) {
	if ref.ID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	// 先尝试从 Redis 获取
	cacheKey := balanceCacheKey(ref)
	cached, err := r.data.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var balance biz.Balance
		if err := json.Unmarshal([]byte(cached), &balance); err == nil {
			return &balance, nil
		}
	}

	// 缓存未命中，从数据库查询
	balance, err := r.getBalanceDB(ctx, ref)
	if err != nil || balance == nil {
		return balance, err
	}

	// 同步回填缓存（短超时独立 context）
	// 异步回填会与并发写入的缓存失效乱序，把旧余额重新写回
	cacheCtx, cancel := detachedCacheCtx()
	defer cancel()
	if data, err := json.Marshal(balance); err == nil {
		if err := r.data.rdb.Set(cacheCtx, cacheKey, data, 5*time.Minute).Err(); err != nil {
			r.log.Warnf("failed to set balance cache: account=%s, error=%v", ref.String(), err)
		}
	}

	return balance, nil
}

func (r *walletRepo) getBalanceDB(ctx context.Context, ref biz.AccountRef) (*biz.Balance, error) {
	db := r.data.db.WithContext(ctx)
	switch ref.Kind {
	case biz.AccountKindPartner:
		var pa model.PartnerAccount
		err := db.Where("partner_id = ?", ref.ID).First(&pa).Error
		if err == nil {
			return &biz.Balance{Total: pa.CreditsTotal, Used: pa.CreditsUsed}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to query partner account: %w", err)
		}
		// 回退到虚拟合作方（用户档案）
		var up model.UserProfile
		if err := db.Where("uid = ?", ref.ID).First(&up).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to query user profile: %w", err)
		}
		return &biz.Balance{Total: up.Credits, Used: 0, Virtual: true}, nil
	case biz.AccountKindEvent:
		var ea model.EventAccount
		if err := db.Where("event_id = ?", ref.ID).First(&ea).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to query event account: %w", err)
		}
		return &biz.Balance{Total: ea.CreditsAllocated, Used: ea.CreditsUsed}, nil
	case biz.AccountKindConsumer:
		var up model.UserProfile
		if err := db.Where("uid = ?", ref.ID).First(&up).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to query user profile: %w", err)
		}
		return &biz.Balance{Total: up.Credits, Used: 0}, nil
	default:
		return nil, fmt.Errorf("unknown account kind: %s", ref.Kind)
	}
}

// Debit 扣减信用点并写 usage 流水；余额不足返回 false, nil
// 行锁 + 余额校验 + 计数器更新 + 流水写入在一个事务内完成，
// 外层再加分布式锁防止同账户高并发下的锁等待堆积
func (r *walletRepo) Debit(ctx context.Context, ref biz.AccountRef, amount int, description string) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	unlock, err := r.lockWallet(ref)
	if err != nil {
		return false, err
	}
	defer unlock()

	sufficient := true
	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch ref.Kind {
		case biz.AccountKindPartner:
			ledger, err := resolvePartnerForUpdate(tx, ref.ID)
			if err != nil {
				return err
			}
			if ledger == nil {
				return apperrors.NewAccountNotFound("partner account not found: " + ref.ID)
			}
			if ledger.available() < amount {
				sufficient = false
				return nil
			}
			if err := ledger.consume(tx, amount); err != nil {
				return err
			}
		case biz.AccountKindEvent:
			var ea model.EventAccount
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("event_id = ?", ref.ID).First(&ea).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewAccountNotFound("event account not found: " + ref.ID)
				}
				return err
			}
			if ea.CreditsAllocated-ea.CreditsUsed < amount {
				sufficient = false
				return nil
			}
			if err := tx.Model(&ea).Update("credits_used", gorm.Expr("credits_used + ?", amount)).Error; err != nil {
				return err
			}
		case biz.AccountKindConsumer:
			var up model.UserProfile
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("uid = ?", ref.ID).First(&up).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewAccountNotFound("consumer account not found: " + ref.ID)
				}
				return err
			}
			if up.Credits < amount {
				sufficient = false
				return nil
			}
			if err := tx.Model(&up).Update("credits", gorm.Expr("credits - ?", amount)).Error; err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown account kind: %s", ref.Kind)
		}

		return r.insertTransaction(tx, ref, -amount, constants.TxKindUsage, description)
	})
	if err != nil {
		r.log.Errorf("Debit failed: account=%s, amount=%d, error=%v", ref.String(), amount, err)
		return false, err
	}
	if !sufficient {
		return false, nil
	}

	r.invalidateBalanceCache(ref)
	return true, nil
}

// Refund 退还信用点并写 refund 流水
// 退还不做余额校验，只做 usage 的逆操作
func (r *walletRepo) Refund(ctx context.Context, ref biz.AccountRef, amount int, description string) error {
	if amount <= 0 {
		return fmt.Errorf("refund amount must be positive, got %d", amount)
	}

	unlock, err := r.lockWallet(ref)
	if err != nil {
		return err
	}
	defer unlock()

	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch ref.Kind {
		case biz.AccountKindPartner:
			ledger, err := resolvePartnerForUpdate(tx, ref.ID)
			if err != nil {
				return err
			}
			if ledger == nil {
				return apperrors.NewAccountNotFound("partner account not found: " + ref.ID)
			}
			if err := ledger.restore(tx, amount); err != nil {
				return err
			}
		case biz.AccountKindEvent:
			var ea model.EventAccount
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("event_id = ?", ref.ID).First(&ea).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewAccountNotFound("event account not found: " + ref.ID)
				}
				return err
			}
			if err := tx.Model(&ea).Update("credits_used", gorm.Expr("credits_used - ?", amount)).Error; err != nil {
				return err
			}
		case biz.AccountKindConsumer:
			var up model.UserProfile
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("uid = ?", ref.ID).First(&up).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewAccountNotFound("consumer account not found: " + ref.ID)
				}
				return err
			}
			if err := tx.Model(&up).Update("credits", gorm.Expr("credits + ?", amount)).Error; err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown account kind: %s", ref.Kind)
		}

		return r.insertTransaction(tx, ref, amount, constants.TxKindRefund, description)
	})
	if err != nil {
		r.log.Errorf("Refund failed: account=%s, amount=%d, error=%v", ref.String(), amount, err)
		return err
	}

	r.invalidateBalanceCache(ref)
	return nil
}

// ListTransactions 按时间倒序分页获取流水
func (r *walletRepo) ListTransactions(ctx context.Context, ref biz.AccountRef, page, pageSize int) ([]*biz.WalletTransaction, int64, error) {
	db := r.data.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Where("account_kind = ? AND account_id = ?", ref.Kind, ref.ID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	var rows []model.WalletTransaction
	if err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query wallet transactions: %w", err)
	}

	result := make([]*biz.WalletTransaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, &biz.WalletTransaction{
			ID:          row.WalletTransactionID,
			AccountKind: biz.AccountKind(row.AccountKind),
			AccountID:   row.AccountID,
			Amount:      row.Amount,
			Kind:        row.Kind,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		})
	}
	return result, total, nil
}

// FoldTransactions 折算账户全部流水（对账用）
func (r *walletRepo) FoldTransactions(ctx context.Context, ref biz.AccountRef) (*biz.LedgerTotals, error) {
	var rows []struct {
		Kind string
		Sum  int
	}
	err := r.data.db.WithContext(ctx).Model(&model.WalletTransaction{}).
		Select("kind, COALESCE(SUM(amount), 0) AS sum").
		Where("account_kind = ? AND account_id = ?", ref.Kind, ref.ID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fold wallet transactions: %w", err)
	}

	totals := &biz.LedgerTotals{}
	for _, row := range rows {
		switch row.Kind {
		case constants.TxKindTopUp:
			totals.TopUp = row.Sum
		case constants.TxKindAllocation:
			totals.Allocation = row.Sum
		case constants.TxKindUsage:
			totals.Usage = row.Sum
		case constants.TxKindRefund:
			totals.Refund = row.Sum
		}
		totals.Net += row.Sum
	}
	return totals, nil
}

// insertTransaction 写入一条流水
func (r *walletRepo) insertTransaction(tx *gorm.DB, ref biz.AccountRef, amount int, kind, description string) error {
	return tx.Create(&model.WalletTransaction{
		WalletTransactionID: uuid.New().String(),
		AccountKind:         string(ref.Kind),
		AccountID:           ref.ID,
		Amount:              amount,
		Kind:                kind,
		Description:         description,
		CreatedAt:           time.Now(),
	}).Error
}

// lockWallet 获取账户级分布式锁
func (r *walletRepo) lockWallet(ref biz.AccountRef) (func(), error) {
	if r.sync == nil {
		return func() {}, nil
	}

	lockKey := constants.RedisKeyWalletLock + ref.String()
	lockStartTime := time.Now()
	mutex := r.sync.NewMutex(lockKey, redsync.WithExpiry(5*time.Second))
	if err := mutex.Lock(); err != nil {
		r.log.Errorf("Failed to acquire wallet lock: account=%s, error=%v", ref.String(), err)
		if r.metrics != nil {
			r.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultFailed).Inc()
			r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
		}
		return nil, apperrors.NewWalletLockFailed("failed to acquire wallet lock for account " + ref.String())
	}
	if r.metrics != nil {
		r.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultSuccess).Inc()
		r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
	}

	return func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			r.log.Warnf("Failed to unlock wallet: account=%s, error=%v", ref.String(), err)
		}
	}, nil
}

// invalidateBalanceCache 余额变更后删除缓存，下次读取时回填
func (r *walletRepo) invalidateBalanceCache(ref biz.AccountRef) {
	cacheCtx, cancel := detachedCacheCtx()
	defer cancel()
	if err := r.data.rdb.Del(cacheCtx, balanceCacheKey(ref)).Err(); err != nil {
		r.log.Warnf("failed to invalidate balance cache: account=%s, error=%v", ref.String(), err)
	}
}
