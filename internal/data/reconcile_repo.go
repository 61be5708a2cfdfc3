package data

import (
	"context"
	"fmt"

	"photogen-service/internal/biz"
	"photogen-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// reconcileRepo 对账数据访问，实现 biz.ReconcileRepo 接口
type reconcileRepo struct {
	data *Data
	log  *log.Helper
}

// NewReconcileRepo 创建对账 repo（返回 biz.ReconcileRepo 接口）
func NewReconcileRepo(data *Data, logger log.Logger) biz.ReconcileRepo {
	return &reconcileRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListAccountRefs 枚举全部持有余额行的账户
// 用户档案同时承担散客账户与虚拟合作方，对账按散客公式（净和）检查一次即可
func (r *reconcileRepo) ListAccountRefs(ctx context.Context) ([]biz.AccountRef, error) {
	var refs []biz.AccountRef

	var partnerIDs []string
	if err := r.data.db.WithContext(ctx).Model(&model.PartnerAccount{}).
		Pluck("partner_id", &partnerIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list partner accounts: %w", err)
	}
	for _, id := range partnerIDs {
		refs = append(refs, biz.AccountRef{Kind: biz.AccountKindPartner, ID: id})
	}

	var eventIDs []string
	if err := r.data.db.WithContext(ctx).Model(&model.EventAccount{}).
		Pluck("event_id", &eventIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list event accounts: %w", err)
	}
	for _, id := range eventIDs {
		refs = append(refs, biz.AccountRef{Kind: biz.AccountKindEvent, ID: id})
	}

	var uids []string
	if err := r.data.db.WithContext(ctx).Model(&model.UserProfile{}).
		Pluck("uid", &uids).Error; err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	for _, id := range uids {
		refs = append(refs, biz.AccountRef{Kind: biz.AccountKindConsumer, ID: id})
	}

	return refs, nil
}
