package service

import (
	"context"
	"fmt"

	"photogen-service/internal/biz"
	"photogen-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// PhotogenAdminService 面向运营后台的服务（充值、活动管理、对账）
type PhotogenAdminService struct {
	allocation *biz.AllocationUseCase
	reconcile  *biz.ReconcileUseCase
	log        *log.Helper
}

// NewPhotogenAdminService 创建 PhotogenAdminService
func NewPhotogenAdminService(allocation *biz.AllocationUseCase, reconcile *biz.ReconcileUseCase, logger log.Logger) *PhotogenAdminService {
	return &PhotogenAdminService{
		allocation: allocation,
		reconcile:  reconcile,
		log:        log.NewHelper(logger),
	}
}

// TopUp 充值（合作方或散客）
func (s *PhotogenAdminService) TopUp(ctx context.Context, req *TopUpRequest) (*TopUpReply, error) {
	var err error
	switch req.Kind {
	case constants.AccountKindPartner:
		err = s.allocation.TopUpPartner(ctx, req.ID, req.Amount)
	case constants.AccountKindConsumer:
		err = s.allocation.TopUpConsumer(ctx, req.ID, req.Amount)
	default:
		return nil, fmt.Errorf("top-up target must be partner or consumer, got %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &TopUpReply{Success: true}, nil
}

// CreateEvent 创建活动并完成首次划拨
func (s *PhotogenAdminService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*CreateEventReply, error) {
	eventID, err := s.allocation.CreateEvent(ctx, req.PartnerID, req.InitialAllocation)
	if err != nil {
		return nil, err
	}
	return &CreateEventReply{EventID: eventID}, nil
}

// Allocate 合作方向已有活动追加划拨
func (s *PhotogenAdminService) Allocate(ctx context.Context, req *AllocateRequest) (*AllocateReply, error) {
	if err := s.allocation.AllocateToEvent(ctx, req.PartnerID, req.EventID, req.Amount); err != nil {
		return nil, err
	}
	return &AllocateReply{Success: true}, nil
}

// Reconcile 全量对账
func (s *PhotogenAdminService) Reconcile(ctx context.Context) (*ReconcileReply, error) {
	drifted, err := s.reconcile.ReconcileAll(ctx)
	if err != nil {
		s.log.Errorf("Reconcile failed: %v", err)
		return nil, err
	}

	reply := &ReconcileReply{Consistent: len(drifted) == 0}
	for _, d := range drifted {
		reply.Drifted = append(reply.Drifted, &ReconcileDriftDTO{
			Kind:     string(d.Account.Kind),
			ID:       d.Account.ID,
			Expected: d.Expected,
			Actual:   d.Actual,
			Detail:   d.Detail,
		})
	}
	return reply, nil
}
