package biz

import (
	"context"
	"sync"
	"time"

	apperrors "photogen-service/internal/errors"
)

// fakeWalletRepo 内存钱包，Debit/Refund 原子、带流水
type fakeWalletRepo struct {
	mu        sync.Mutex
	available map[string]int
	txs       []*WalletTransaction
	refundErr error
	debitErr  error
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{available: make(map[string]int)}
}

func (f *fakeWalletRepo) GetBalance(ctx context.Context, ref AccountRef) (*Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	avail, ok := f.available[ref.String()]
	if !ok {
		return nil, nil
	}
	return &Balance{Total: avail, Used: 0}, nil
}

func (f *fakeWalletRepo) Debit(ctx context.Context, ref AccountRef, amount int, description string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return false, f.debitErr
	}
	avail, ok := f.available[ref.String()]
	if !ok {
		return false, apperrors.NewAccountNotFound("account not found: " + ref.String())
	}
	if avail < amount {
		return false, nil
	}
	f.available[ref.String()] = avail - amount
	f.txs = append(f.txs, &WalletTransaction{
		AccountKind: ref.Kind,
		AccountID:   ref.ID,
		Amount:      -amount,
		Kind:        "usage",
		Description: description,
		CreatedAt:   time.Now(),
	})
	return true, nil
}

func (f *fakeWalletRepo) Refund(ctx context.Context, ref AccountRef, amount int, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.available[ref.String()] += amount
	f.txs = append(f.txs, &WalletTransaction{
		AccountKind: ref.Kind,
		AccountID:   ref.ID,
		Amount:      amount,
		Kind:        "refund",
		Description: description,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (f *fakeWalletRepo) ListTransactions(ctx context.Context, ref AccountRef, page, pageSize int) ([]*WalletTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*WalletTransaction
	for _, tx := range f.txs {
		if tx.AccountKind == ref.Kind && tx.AccountID == ref.ID {
			matched = append(matched, tx)
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeWalletRepo) FoldTransactions(ctx context.Context, ref AccountRef) (*LedgerTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := &LedgerTotals{}
	for _, tx := range f.txs {
		if tx.AccountKind != ref.Kind || tx.AccountID != ref.ID {
			continue
		}
		switch tx.Kind {
		case "topup":
			totals.TopUp += tx.Amount
		case "allocation":
			totals.Allocation += tx.Amount
		case "usage":
			totals.Usage += tx.Amount
		case "refund":
			totals.Refund += tx.Amount
		}
		totals.Net += tx.Amount
	}
	return totals, nil
}

// topUp 充值并写 topup 流水（测试辅助）
func (f *fakeWalletRepo) topUp(ref AccountRef, amount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[ref.String()] += amount
	f.txs = append(f.txs, &WalletTransaction{
		AccountKind: ref.Kind,
		AccountID:   ref.ID,
		Amount:      amount,
		Kind:        "topup",
		Description: "top-up",
		CreatedAt:   time.Now(),
	})
}

// transactionsFor 按账户过滤流水（测试断言用）
func (f *fakeWalletRepo) transactionsFor(ref AccountRef) []*WalletTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*WalletTransaction
	for _, tx := range f.txs {
		if tx.AccountKind == ref.Kind && tx.AccountID == ref.ID {
			matched = append(matched, tx)
		}
	}
	return matched
}

// fakeRateLimitRepo 内存限流数据
type fakeRateLimitRepo struct {
	profiles    map[string]*ConsumerProfile
	generatedAt map[string][]time.Time
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{
		profiles:    make(map[string]*ConsumerProfile),
		generatedAt: make(map[string][]time.Time),
	}
}

func (f *fakeRateLimitRepo) GetConsumerProfile(ctx context.Context, uid string) (*ConsumerProfile, error) {
	return f.profiles[uid], nil
}

func (f *fakeRateLimitRepo) CountGenerationsBetween(ctx context.Context, ref AccountRef, from, to time.Time) (int, error) {
	count := 0
	for _, at := range f.generatedAt[ref.ID] {
		if !at.Before(from) && at.Before(to) {
			count++
		}
	}
	return count, nil
}

// fakeGenerationRepo 内存生成记录
type fakeGenerationRepo struct {
	mu         sync.Mutex
	records    []*GenerationRecord
	totalGen   map[string]int
	createErr  error
	incrErr    error
	deletedIDs []string
}

func newFakeGenerationRepo() *fakeGenerationRepo {
	return &fakeGenerationRepo{totalGen: make(map[string]int)}
}

func (f *fakeGenerationRepo) CreateGenerationRecord(ctx context.Context, record *GenerationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeGenerationRepo) IncrementTotalGenerations(ctx context.Context, ref AccountRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return f.incrErr
	}
	f.totalGen[ref.String()]++
	return nil
}

func (f *fakeGenerationRepo) ListGenerationRecords(ctx context.Context, ref AccountRef, page, pageSize int) ([]*GenerationRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*GenerationRecord
	for _, r := range f.records {
		if r.Account == ref {
			matched = append(matched, r)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeGenerationRepo) ListEventGenerationRecords(ctx context.Context, eventID string, limit int) ([]*GenerationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*GenerationRecord
	for _, r := range f.records {
		if r.EventID == eventID {
			matched = append(matched, r)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeGenerationRepo) DeleteGenerationRecord(ctx context.Context, recordID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == recordID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			f.deletedIDs = append(f.deletedIDs, recordID)
			return true, nil
		}
	}
	return false, nil
}

// fakeProviderClient 可编程的生成服务
type fakeProviderClient struct {
	mu       sync.Mutex
	calls    int
	generate func(ctx context.Context, req *GenerateImageRequest) (*GenerateImageReply, error)
}

func (f *fakeProviderClient) GenerateImage(ctx context.Context, req *GenerateImageRequest) (*GenerateImageReply, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.generate(ctx, req)
}

func (f *fakeProviderClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePublisher 收集发布的事件
type fakePublisher struct {
	mu     sync.Mutex
	events []*GenerationEvent
	err    error
}

func (f *fakePublisher) PublishGenerationEvent(ctx context.Context, event *GenerationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

// fakeAllocationRepo 内存划拨数据
type fakeAllocationRepo struct {
	partnerAvailable map[string]int
	consumerCredits  map[string]int
	events           map[string]int // eventID -> allocated
	eventOwners      map[string]string
}

func newFakeAllocationRepo() *fakeAllocationRepo {
	return &fakeAllocationRepo{
		partnerAvailable: make(map[string]int),
		consumerCredits:  make(map[string]int),
		events:           make(map[string]int),
		eventOwners:      make(map[string]string),
	}
}

func (f *fakeAllocationRepo) TopUpPartner(ctx context.Context, partnerID string, amount int, description string) error {
	f.partnerAvailable[partnerID] += amount
	return nil
}

func (f *fakeAllocationRepo) TopUpConsumer(ctx context.Context, uid string, amount int, description string) error {
	f.consumerCredits[uid] += amount
	return nil
}

func (f *fakeAllocationRepo) AllocateToEvent(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error) {
	if _, ok := f.events[eventID]; !ok {
		return false, apperrors.NewAccountNotFound("event account not found: " + eventID)
	}
	if f.partnerAvailable[partnerID] < amount {
		return false, nil
	}
	f.partnerAvailable[partnerID] -= amount
	f.events[eventID] += amount
	return true, nil
}

func (f *fakeAllocationRepo) CreateEventWithAllocation(ctx context.Context, partnerID, eventID string, amount int, description string) (bool, error) {
	if f.partnerAvailable[partnerID] < amount {
		return false, nil
	}
	f.partnerAvailable[partnerID] -= amount
	f.events[eventID] = amount
	f.eventOwners[eventID] = partnerID
	return true, nil
}

// fakeReconcileRepo 固定账户列表
type fakeReconcileRepo struct {
	refs []AccountRef
}

func (f *fakeReconcileRepo) ListAccountRefs(ctx context.Context) ([]AccountRef, error) {
	return f.refs, nil
}
