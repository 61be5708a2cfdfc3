package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWalletRepo 对账测试用：直接指定余额与流水折算结果
type stubWalletRepo struct {
	fakeWalletRepo
	balances map[string]*Balance
	totals   map[string]*LedgerTotals
}

func newStubWalletRepo() *stubWalletRepo {
	return &stubWalletRepo{
		balances: make(map[string]*Balance),
		totals:   make(map[string]*LedgerTotals),
	}
}

func (s *stubWalletRepo) GetBalance(ctx context.Context, ref AccountRef) (*Balance, error) {
	return s.balances[ref.String()], nil
}

func (s *stubWalletRepo) FoldTransactions(ctx context.Context, ref AccountRef) (*LedgerTotals, error) {
	if t, ok := s.totals[ref.String()]; ok {
		return t, nil
	}
	return &LedgerTotals{}, nil
}

func TestReconcileAccount_PartnerConsistent(t *testing.T) {
	wallet := newStubWalletRepo()
	wallet.balances["partner:p-1"] = &Balance{Total: 1000, Used: 300}
	wallet.totals["partner:p-1"] = &LedgerTotals{TopUp: 1000, Allocation: -300, Net: 700}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindPartner, ID: "p-1"})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestReconcileAccount_PartnerDrift(t *testing.T) {
	wallet := newStubWalletRepo()
	wallet.balances["partner:p-1"] = &Balance{Total: 1000, Used: 250}
	wallet.totals["partner:p-1"] = &LedgerTotals{TopUp: 1000, Allocation: -300, Net: 700}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindPartner, ID: "p-1"})
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.Equal(t, 300, result.Expected)
	assert.Equal(t, 250, result.Actual)
}

func TestReconcileAccount_EventChecksUsageOnly(t *testing.T) {
	wallet := newStubWalletRepo()
	// allocated 不做流水推导，只校验 used 与 usage/refund 的折算
	wallet.balances["event:ev-1"] = &Balance{Total: 300, Used: 4}
	wallet.totals["event:ev-1"] = &LedgerTotals{Usage: -5, Refund: 1, Net: -4}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindEvent, ID: "ev-1"})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestReconcileAccount_ConsumerNetSum(t *testing.T) {
	wallet := newStubWalletRepo()
	wallet.balances["consumer:u-1"] = &Balance{Total: 2, Used: 0}
	wallet.totals["consumer:u-1"] = &LedgerTotals{TopUp: 3, Usage: -2, Refund: 1, Net: 2}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindConsumer, ID: "u-1"})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestReconcileAccount_ConsumerWithVirtualPartnerRows(t *testing.T) {
	wallet := newStubWalletRepo()
	// 档案同时作为散客与虚拟合作方使用：两个 kind 下都有流水
	wallet.balances["consumer:u-1"] = &Balance{Total: 5, Used: 0}
	wallet.balances["partner:u-1"] = &Balance{Total: 5, Used: 0, Virtual: true}
	wallet.totals["consumer:u-1"] = &LedgerTotals{TopUp: 10, Net: 10}
	wallet.totals["partner:u-1"] = &LedgerTotals{Allocation: -5, Net: -5}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindConsumer, ID: "u-1"})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestReconcileAccount_ConsumerIgnoresRealPartnerRows(t *testing.T) {
	wallet := newStubWalletRepo()
	// 同 ID 存在正式合作方行：partner 流水归正式行，散客只看自己的净和
	wallet.balances["consumer:x"] = &Balance{Total: 3, Used: 0}
	wallet.balances["partner:x"] = &Balance{Total: 1000, Used: 0}
	wallet.totals["consumer:x"] = &LedgerTotals{TopUp: 3, Net: 3}
	wallet.totals["partner:x"] = &LedgerTotals{TopUp: 1000, Net: 1000}
	uc := NewReconcileUseCase(wallet, &fakeReconcileRepo{}, testLogger())

	result, err := uc.ReconcileAccount(context.Background(), AccountRef{Kind: AccountKindConsumer, ID: "x"})
	require.NoError(t, err)
	assert.True(t, result.Consistent)
}

func TestReconcileAll(t *testing.T) {
	wallet := newStubWalletRepo()
	wallet.balances["partner:p-1"] = &Balance{Total: 1000, Used: 300}
	wallet.totals["partner:p-1"] = &LedgerTotals{TopUp: 1000, Allocation: -300, Net: 700}
	wallet.balances["event:ev-1"] = &Balance{Total: 300, Used: 7}
	wallet.totals["event:ev-1"] = &LedgerTotals{Usage: -5, Net: -5}

	repo := &fakeReconcileRepo{refs: []AccountRef{
		{Kind: AccountKindPartner, ID: "p-1"},
		{Kind: AccountKindEvent, ID: "ev-1"},
	}}
	uc := NewReconcileUseCase(wallet, repo, testLogger())

	drifted, err := uc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, AccountRef{Kind: AccountKindEvent, ID: "ev-1"}, drifted[0].Account)
	assert.Equal(t, 5, drifted[0].Expected)
	assert.Equal(t, 7, drifted[0].Actual)
}
