package data

import (
	"context"
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

// allocationRepo 充值/划拨数据访问，实现 biz.AllocationRepo 接口
type allocationRepo struct {
	data    *Data
	sync    *redsync.Redsync
	log     *log.Helper
	metrics *metrics.PhotogenMetrics
}

// NewAllocationRepo 创建划拨 repo（返回 biz.AllocationRepo 接口）
func NewAllocationRepo(data *Data, sync *redsync.Redsync, logger log.Logger) biz.AllocationRepo {
	return &allocationRepo{
		data:    data,
		sync:    sync,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// TopUpPartner 合作方充值
// 正式合作方不存在且没有同 ID 的用户档案时，首次充值自动创建账户行
func (r *allocationRepo) TopUpPartner(ctx context.Context, partnerID string, amount int, description string) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger, err := resolvePartnerForUpdate(tx, partnerID)
		if err != nil {
			return err
		}
		if ledger == nil {
			pa := model.PartnerAccount{
				PartnerAccountID: uuid.New().String(),
				PartnerID:        partnerID,
				CreditsTotal:     amount,
			}
			if err := tx.Create(&pa).Error; err != nil {
				return err
			}
		} else if err := ledger.credit(tx, amount); err != nil {
			return err
		}

		return r.insertTransaction(tx, biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID},
			amount, constants.TxKindTopUp, description)
	})
	if err != nil {
		return err
	}

	r.invalidateBalanceCache(biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID})
	return nil
}

// TopUpConsumer 散客充值（注册赠送/自购），档案不存在时自动创建
func (r *allocationRepo) TopUpConsumer(ctx context.Context, uid string, amount int, description string) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var up model.UserProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("uid = ?", uid).First(&up).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			up = model.UserProfile{
				UserProfileID: uuid.New().String(),
				UID:           uid,
				Credits:       amount,
			}
			if err := tx.Create(&up).Error; err != nil {
				return err
			}
		} else if err := tx.Model(&up).Update("credits", gorm.Expr("credits + ?", amount)).Error; err != nil {
			return err
		}

		return r.insertTransaction(tx, biz.AccountRef{Kind: biz.AccountKindConsumer, ID: uid},
			amount, constants.TxKindTopUp, description)
	})
	if err != nil {
		return err
	}

	r.invalidateBalanceCache(biz.AccountRef{Kind: biz.AccountKindConsumer, ID: uid})
	return nil
}

// AllocateToEvent 从合作方可用余额向活动划拨；余额不足返回 false, nil
// 合作方侧扣减与活动侧增加在同一个事务内完成，
// 流水只在合作方侧留一条 allocation 记录（活动侧额度可由合作方流水追溯）
func (r *allocationRepo) AllocateToEvent(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error) {
	unlock, err := r.lockAllocation(partnerID)
	if err != nil {
		return false, err
	}
	defer unlock()

	sufficient := true
	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger, err := resolvePartnerForUpdate(tx, partnerID)
		if err != nil {
			return err
		}
		if ledger == nil {
			return apperrors.NewAccountNotFound("partner account not found: " + partnerID)
		}
		if ledger.available() < amount {
			sufficient = false
			return nil
		}

		var ea model.EventAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ?", eventID).First(&ea).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewAccountNotFound("event account not found: " + eventID)
			}
			return err
		}
		if ea.PartnerID != partnerID {
			return apperrors.NewAccountNotFound(
				fmt.Sprintf("event %s does not belong to partner %s", eventID, partnerID))
		}

		if err := ledger.consume(tx, amount); err != nil {
			return err
		}
		if err := tx.Model(&ea).Update("credits_allocated", gorm.Expr("credits_allocated + ?", amount)).Error; err != nil {
			return err
		}

		return r.insertTransaction(tx, biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID},
			-amount, constants.TxKindAllocation, description)
	})
	if err != nil {
		r.log.Errorf("AllocateToEvent failed: partner_id=%s, event_id=%s, amount=%d, error=%v", partnerID, eventID, amount, err)
		return false, err
	}
	if !sufficient {
		return false, nil
	}

	r.invalidateBalanceCache(biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID})
	r.invalidateBalanceCache(biz.AccountRef{Kind: biz.AccountKindEvent, ID: eventID})
	return true, nil
}

// CreateEventWithAllocation 创建活动并完成首次划拨，同一事务内全有或全无
func (r *allocationRepo) CreateEventWithAllocation(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error) {
	unlock, err := r.lockAllocation(partnerID)
	if err != nil {
		return false, err
	}
	defer unlock()

	sufficient := true
	err = r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.EventAccount
		err := tx.Where("event_id = ?", eventID).First(&existing).Error
		if err == nil {
			return apperrors.NewEventAlreadyExists("event already exists: " + eventID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		ledger, err := resolvePartnerForUpdate(tx, partnerID)
		if err != nil {
			return err
		}
		if ledger == nil {
			return apperrors.NewAccountNotFound("partner account not found: " + partnerID)
		}
		if ledger.available() < amount {
			sufficient = false
			return nil
		}

		if err := ledger.consume(tx, amount); err != nil {
			return err
		}
		ea := model.EventAccount{
			EventAccountID:   uuid.New().String(),
			EventID:          eventID,
			PartnerID:        partnerID,
			CreditsAllocated: amount,
		}
		if err := tx.Create(&ea).Error; err != nil {
			return err
		}

		return r.insertTransaction(tx, biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID},
			-amount, constants.TxKindAllocation, description)
	})
	if err != nil {
		r.log.Errorf("CreateEventWithAllocation failed: partner_id=%s, event_id=%s, amount=%d, error=%v", partnerID, eventID, amount, err)
		return false, err
	}
	if !sufficient {
		return false, nil
	}

	r.invalidateBalanceCache(biz.AccountRef{Kind: biz.AccountKindPartner, ID: partnerID})
	return true, nil
}

// insertTransaction 写入一条流水
func (r *allocationRepo) insertTransaction(tx *gorm.DB, ref biz.AccountRef, amount int, kind, description string) error {
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

// lockAllocation 获取合作方级划拨锁
func (r *allocationRepo) lockAllocation(partnerID string) (func(), error) {
	if r.sync == nil {
		return func() {}, nil
	}

	lockKey := constants.RedisKeyAllocLock + partnerID
	lockStartTime := time.Now()
	mutex := r.sync.NewMutex(lockKey, redsync.WithExpiry(5*time.Second))
	if err := mutex.Lock(); err != nil {
		r.log.Errorf("Failed to acquire allocation lock: partner_id=%s, error=%v", partnerID, err)
		if r.metrics != nil {
			r.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultFailed).Inc()
			r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
		}
		return nil, apperrors.NewWalletLockFailed("failed to acquire allocation lock for partner " + partnerID)
	}
	if r.metrics != nil {
		r.metrics.LockAcquireTotal.WithLabelValues(constants.LockResultSuccess).Inc()
		r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
	}

	return func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			r.log.Warnf("Failed to unlock allocation: partner_id=%s, error=%v", partnerID, err)
		}
	}, nil
}

// invalidateBalanceCache 余额变更后删除缓存，下次读取时回填
func (r *allocationRepo) invalidateBalanceCache(ref biz.AccountRef) {
	cacheCtx, cancel := detachedCacheCtx()
	defer cancel()
	if err := r.data.rdb.Del(cacheCtx, balanceCacheKey(ref)).Err(); err != nil {
		r.log.Warnf("failed to invalidate balance cache: account=%s, error=%v", ref.String(), err)
	}
}
