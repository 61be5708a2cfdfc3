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

func newTestWalletRepo(t *testing.T) (biz.WalletRepo, sqlmock.Sqlmock) {
	t.Helper()
	data, mock := newMockData(t)
	// 单测不加分布式锁，原子性由事务本身保证
	return NewWalletRepo(data, nil, testLogger()), mock
}

func TestWalletRepoDebit_EventSufficient(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?(.+)FOR UPDATE").
		WillReturnRows(eventAccountRows("ea-1", "ev-1", "p-1", 300, 10))
	mock.ExpectExec("UPDATE `event_account` SET `credits_used`=credits_used \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Debit(context.Background(), biz.AccountRef{Kind: biz.AccountKindEvent, ID: "ev-1"}, 1, "generation reservation")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoDebit_EventInsufficient(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	// 余额不足：校验失败后事务内不再有任何写入
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?(.+)FOR UPDATE").
		WillReturnRows(eventAccountRows("ea-1", "ev-1", "p-1", 3, 3))
	mock.ExpectCommit()

	ok, err := repo.Debit(context.Background(), biz.AccountRef{Kind: biz.AccountKindEvent, ID: "ev-1"}, 1, "generation reservation")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoDebit_PartnerRow(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(partnerAccountRows("pa-1", "p-1", 1000, 300))
	mock.ExpectExec("UPDATE `partner_account` SET `credits_used`=credits_used \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Debit(context.Background(), biz.AccountRef{Kind: biz.AccountKindPartner, ID: "p-1"}, 2, "spend")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoDebit_PartnerFallsBackToProfile(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	// 没有正式合作方行：解析回退到用户档案，扣减落在 credits 上
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyPartnerAccountRows())
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?(.+)FOR UPDATE").
		WillReturnRows(userProfileRows("up-1", "p-legacy", 5))
	mock.ExpectExec("UPDATE `user_profile` SET `credits`=credits - \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.Debit(context.Background(), biz.AccountRef{Kind: biz.AccountKindPartner, ID: "p-legacy"}, 1, "spend")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoDebit_AccountMissing(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyPartnerAccountRows())
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?(.+)FOR UPDATE").
		WillReturnRows(emptyUserProfileRows())
	mock.ExpectRollback()

	ok, err := repo.Debit(context.Background(), biz.AccountRef{Kind: biz.AccountKindPartner, ID: "ghost"}, 1, "spend")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsAccountNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoRefund_Event(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	// 退还不做余额校验，直接回退 credits_used 并写 refund 流水
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `event_account` WHERE event_id = \\?(.+)FOR UPDATE").
		WillReturnRows(eventAccountRows("ea-1", "ev-1", "p-1", 300, 11))
	mock.ExpectExec("UPDATE `event_account` SET `credits_used`=credits_used - \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `wallet_transaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Refund(context.Background(), biz.AccountRef{Kind: biz.AccountKindEvent, ID: "ev-1"}, 1, "refund: provider failure")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoGetBalance_Consumer(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	// 缓存不可用时退化为直查数据库，回填失败只告警
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?").
		WillReturnRows(userProfileRows("up-1", "u-1", 7))

	balance, err := repo.GetBalance(context.Background(), biz.AccountRef{Kind: biz.AccountKindConsumer, ID: "u-1"})
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, 7, balance.Total)
	assert.Equal(t, 0, balance.Used)
	assert.False(t, balance.Virtual)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoGetBalance_VirtualPartner(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM `partner_account` WHERE partner_id = \\?").
		WillReturnRows(emptyPartnerAccountRows())
	mock.ExpectQuery("SELECT (.+) FROM `user_profile` WHERE uid = \\?").
		WillReturnRows(userProfileRows("up-1", "p-legacy", 12))

	balance, err := repo.GetBalance(context.Background(), biz.AccountRef{Kind: biz.AccountKindPartner, ID: "p-legacy"})
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, 12, balance.Total)
	assert.True(t, balance.Virtual)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepoFoldTransactions(t *testing.T) {
	repo, mock := newTestWalletRepo(t)

	rows := sqlmock.NewRows([]string{"kind", "sum"}).
		AddRow("topup", 1000).
		AddRow("allocation", -300).
		AddRow("usage", -5).
		AddRow("refund", 1)
	mock.ExpectQuery("SELECT kind, COALESCE\\(SUM\\(amount\\), 0\\) AS sum FROM `wallet_transaction`").
		WillReturnRows(rows)

	totals, err := repo.FoldTransactions(context.Background(), biz.AccountRef{Kind: biz.AccountKindPartner, ID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, 1000, totals.TopUp)
	assert.Equal(t, -300, totals.Allocation)
	assert.Equal(t, -5, totals.Usage)
	assert.Equal(t, 1, totals.Refund)
	assert.Equal(t, 696, totals.Net)
	require.NoError(t, mock.ExpectationsWereMet())
}
