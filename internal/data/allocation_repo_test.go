package data

import (
	"context"
	"testing"

	"photogen-service/internal/biz"
	apperrors "photogen-service/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocationRepo(t *testing.T) (biz.AllocationRepo, sqlmock.Sqlmock) {
	t.Helper()
	data, mock := newMockData(t)
	return NewAllocationRepo(data, nil, testLogger()), mock
}

func TestAllocationRepoAllocateToEvent(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	// 合作方余额校验与活动额度增加在同一个事务内
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(partnerAccountRows("pa-1", "p-1", 1000, 0))
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?(.+)FOR UPDATE").
		WillReturnRows(eventAccountRows("ea-1", "ev-1", "p-1", 0, 0))
	mock.ExpectExec("UPDATE `partner_account` SET `credits_used`=credits_used \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `event_account` SET `credits_allocated`=credits_allocated \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.AllocateToEvent(context.Background(), "p-1", "ev-1", 300, "allocate 300 credits to event ev-1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepoAllocateToEvent_Insufficient(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	// 可用余额不够：锁定合作方行后直接结束，不再触碰活动行
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(partnerAccountRows("pa-1", "p-1", 100, 0))
	mock.ExpectCommit()

	ok, err := repo.AllocateToEvent(context.Background(), "p-1", "ev-1", 300, "allocate")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepoAllocateToEvent_WrongOwner(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(partnerAccountRows("pa-1", "p-1", 1000, 0))
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?(.+)FOR UPDATE").
		WillReturnRows(eventAccountRows("ea-1", "ev-1", "someone-else", 0, 0))
	mock.ExpectRollback()

	ok, err := repo.AllocateToEvent(context.Background(), "p-1", "ev-1", 300, "allocate")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsAccountNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepoTopUpPartner_ProvisionsOnFirstTopUp(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	// 正式行与档案都不存在：首次充值创建账户行
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyPartnerAccountRows())
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyUserProfileRows())
	mock.ExpectExec("INSERT INTO `partner_account`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.TopUpPartner(context.Background(), "p-new", 1000, "top-up 1000 credits")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepoTopUpPartner_VirtualPartner(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	// 虚拟合作方：充值映射到档案的 credits 字段
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyPartnerAccountRows())
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?(.+)FOR UPDATE").
		WillReturnRows(userProfileRows("up-1", "p-legacy", 5))
	mock.ExpectExec("UPDATE `user_profile` SET `credits`=credits \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.TopUpPartner(context.Background(), "p-legacy", 200, "top-up 200 credits")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepoCreateEventWithAllocation_AllOrNothing(t *testing.T) {
	repo, mock := newTestAllocationRepo(t)

	// 余额不足时活动行不会被创建
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"event_account_id"}))
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(partnerAccountRows("pa-1", "p-1", 100, 0))
	mock.ExpectCommit()

	ok, err := repo.CreateEventWithAllocation(context.Background(), "p-1", "ev-new", 300, "allocate")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
