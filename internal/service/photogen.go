package service

import (
	"context"

	"photogen-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// PhotogenService 面向拍照终端/前端的服务
type PhotogenService struct {
	generation *biz.GenerationUseCase
	wallet     *biz.WalletUseCase
	log        *log.Helper
}

// NewPhotogenService 创建 PhotogenService
func NewPhotogenService(generation *biz.GenerationUseCase, wallet *biz.WalletUseCase, logger log.Logger) *PhotogenService {
	return &PhotogenService{
		generation: generation,
		wallet:     wallet,
		log:        log.NewHelper(logger),
	}
}

// Generate 发起一次生成
func (s *PhotogenService) Generate(ctx context.Context, req *GenerateRequest) (*GenerateReply, error) {
	account, err := req.Account.toBiz()
	if err != nil {
		return nil, err
	}

	record, err := s.generation.Generate(ctx, &biz.GenerationRequest{
		Account:        account,
		StyleID:        req.StyleID,
		SourceImageURL: req.SourceImageURL,
		ClientIP:       req.ClientIP,
	})
	if err != nil {
		s.log.Errorf("Generate failed: account=%s, style=%s, error=%v", account.String(), req.StyleID, err)
		return nil, err
	}

	return &GenerateReply{
		RecordID:  record.ID,
		ImageURL:  record.ImageURL,
		CreatedAt: record.CreatedAt,
	}, nil
}

// GetBalance 查询余额
func (s *PhotogenService) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceReply, error) {
	ref, err := (&AccountRefDTO{Kind: req.Kind, ID: req.ID}).toBiz()
	if err != nil {
		return nil, err
	}

	balance, err := s.wallet.GetBalance(ctx, ref)
	if err != nil {
		return nil, err
	}

	return &GetBalanceReply{
		Kind:               string(ref.Kind),
		ID:                 ref.ID,
		Total:              balance.Total,
		Used:               balance.Used,
		Available:          biz.AvailableCredits(balance),
		ConsumptionPercent: biz.ConsumptionPercent(balance),
		Virtual:            balance.Virtual,
	}, nil
}

// ListTransactions 查询钱包流水
func (s *PhotogenService) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsReply, error) {
	ref, err := (&AccountRefDTO{Kind: req.Kind, ID: req.ID}).toBiz()
	if err != nil {
		return nil, err
	}

	txs, total, err := s.wallet.ListTransactions(ctx, ref, req.Page, req.PageSize)
	if err != nil {
		s.log.Errorf("ListTransactions failed: account=%s, error=%v", ref.String(), err)
		return nil, err
	}

	reply := &ListTransactionsReply{
		Total:        total,
		Transactions: make([]*TransactionDTO, 0, len(txs)),
	}
	for _, tx := range txs {
		reply.Transactions = append(reply.Transactions, &TransactionDTO{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Kind:        tx.Kind,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return reply, nil
}

// ListRecords 查询生成记录
func (s *PhotogenService) ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsReply, error) {
	ref, err := (&AccountRefDTO{Kind: req.Kind, ID: req.ID}).toBiz()
	if err != nil {
		return nil, err
	}

	records, total, err := s.generation.ListRecords(ctx, ref, req.Page, req.PageSize)
	if err != nil {
		s.log.Errorf("ListRecords failed: account=%s, error=%v", ref.String(), err)
		return nil, err
	}

	reply := &ListRecordsReply{
		Total:   total,
		Records: make([]*GenerationRecordDTO, 0, len(records)),
	}
	for _, r := range records {
		reply.Records = append(reply.Records, &GenerationRecordDTO{
			RecordID:  r.ID,
			EventID:   r.EventID,
			StyleID:   r.StyleID,
			ImageURL:  r.ImageURL,
			CreatedAt: r.CreatedAt,
		})
	}
	return reply, nil
}

// TopStyles 查询活动风格热度榜单
func (s *PhotogenService) TopStyles(ctx context.Context, req *TopStylesRequest) (*TopStylesReply, error) {
	styles, err := s.generation.TopStyles(ctx, req.EventID, req.Limit)
	if err != nil {
		s.log.Errorf("TopStyles failed: event_id=%s, error=%v", req.EventID, err)
		return nil, err
	}
	return &TopStylesReply{Styles: styles}, nil
}
