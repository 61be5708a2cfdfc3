package data

import (
	"errors"

	"photogen-service/internal/biz"
	"photogen-service/internal/data/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// partnerLedger 合作方余额行的统一视图
// 合作方引用可能落在 partner_account 行上，也可能落在 user_profile 上
// （虚拟合作方：普通用户直接为活动供给信用点）。两种行的计数器结构不同，
// 这里把差异收在数据层，事务内解析一次后按同一套操作使用
type partnerLedger interface {
	available() int
	balance() *biz.Balance
	// credit 充值：正式行加 credits_total，虚拟行加 credits
	credit(tx *gorm.DB, amount int) error
	// consume 消费（划拨/扣减）：正式行加 credits_used，虚拟行减 credits。
	// 调用方必须已用 available 校验过余额
	consume(tx *gorm.DB, amount int) error
	// restore 退还：consume 的逆操作
	restore(tx *gorm.DB, amount int) error
}

// resolvePartnerForUpdate 在事务内解析并锁定合作方余额行
// 优先匹配正式合作方行，找不到时回退到用户档案；两者都不存在返回 nil, nil
func resolvePartnerForUpdate(tx *gorm.DB, partnerID string) (partnerLedger, error) {
	var pa model.PartnerAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("partner_id = ?", partnerID).First(&pa).Error
	if err == nil {
		return &rowPartnerLedger{m: &pa}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var up model.UserProfile
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uid = ?", partnerID).First(&up).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &virtualPartnerLedger{m: &up}, nil
}

// rowPartnerLedger 正式合作方行（credits_total / credits_used 双计数器）
type rowPartnerLedger struct {
	m *model.PartnerAccount
}

func (l *rowPartnerLedger) available() int {
	return l.m.CreditsTotal - l.m.CreditsUsed
}

func (l *rowPartnerLedger) balance() *biz.Balance {
	return &biz.Balance{Total: l.m.CreditsTotal, Used: l.m.CreditsUsed}
}

func (l *rowPartnerLedger) credit(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits_total", gorm.Expr("credits_total + ?", amount)).Error
}

func (l *rowPartnerLedger) consume(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits_used", gorm.Expr("credits_used + ?", amount)).Error
}

func (l *rowPartnerLedger) restore(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits_used", gorm.Expr("credits_used - ?", amount)).Error
}

// virtualPartnerLedger 用户档案兜底（单一 credits 计数器）
type virtualPartnerLedger struct {
	m *model.UserProfile
}

func (l *virtualPartnerLedger) available() int {
	return l.m.Credits
}

func (l *virtualPartnerLedger) balance() *biz.Balance {
	return &biz.Balance{Total: l.m.Credits, Used: 0, Virtual: true}
}

func (l *virtualPartnerLedger) credit(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits", gorm.Expr("credits + ?", amount)).Error
}

func (l *virtualPartnerLedger) consume(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits", gorm.Expr("credits - ?", amount)).Error
}

func (l *virtualPartnerLedger) restore(tx *gorm.DB, amount int) error {
	return tx.Model(l.m).Update("credits", gorm.Expr("credits + ?", amount)).Error
}
