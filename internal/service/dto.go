package service

import (
	"fmt"
	"time"

	"photogen-service/internal/biz"
)

// AccountRefDTO 账户引用（kind: partner/event/consumer）
type AccountRefDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (d *AccountRefDTO) toBiz() (biz.AccountRef, error) {
	kind := biz.AccountKind(d.Kind)
	switch kind {
	case biz.AccountKindPartner, biz.AccountKindEvent, biz.AccountKindConsumer:
	default:
		return biz.AccountRef{}, fmt.Errorf("invalid account kind: %q", d.Kind)
	}
	if d.ID == "" {
		return biz.AccountRef{}, fmt.Errorf("account id is required")
	}
	return biz.AccountRef{Kind: kind, ID: d.ID}, nil
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Account        AccountRefDTO `json:"account"`
	StyleID        string        `json:"style_id"`
	SourceImageURL string        `json:"source_image_url"`
	ClientIP       string        `json:"-"` // 服务端从连接填充，不信任请求体
}

// GenerateReply 生成响应
type GenerateReply struct {
	RecordID  string    `json:"record_id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// GetBalanceRequest 余额查询请求
type GetBalanceRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// GetBalanceReply 余额查询响应
type GetBalanceReply struct {
	Kind               string `json:"kind"`
	ID                 string `json:"id"`
	Total              int    `json:"total"`
	Used               int    `json:"used"`
	Available          int    `json:"available"`
	ConsumptionPercent int    `json:"consumption_percent"`
	Virtual            bool   `json:"virtual,omitempty"`
}

// ListTransactionsRequest 流水查询请求
type ListTransactionsRequest struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// TransactionDTO 流水条目
type TransactionDTO struct {
	ID          string    `json:"id"`
	Amount      int       `json:"amount"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListTransactionsReply 流水查询响应
type ListTransactionsReply struct {
	Total        int64             `json:"total"`
	Transactions []*TransactionDTO `json:"transactions"`
}

// ListRecordsRequest 生成记录查询请求
type ListRecordsRequest struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// GenerationRecordDTO 生成记录条目
type GenerationRecordDTO struct {
	RecordID  string    `json:"record_id"`
	EventID   string    `json:"event_id,omitempty"`
	StyleID   string    `json:"style_id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRecordsReply 生成记录查询响应
type ListRecordsReply struct {
	Total   int64                  `json:"total"`
	Records []*GenerationRecordDTO `json:"records"`
}

// TopStylesRequest 风格榜单请求
type TopStylesRequest struct {
	EventID string `json:"event_id"`
	Limit   int    `json:"limit"`
}

// TopStylesReply 风格榜单响应
type TopStylesReply struct {
	Styles []biz.StyleCount `json:"styles"`
}

// TopUpRequest 充值请求（合作方或散客）
type TopUpRequest struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

// TopUpReply 充值响应
type TopUpReply struct {
	Success bool `json:"success"`
}

// CreateEventRequest 创建活动请求
type CreateEventRequest struct {
	PartnerID         string `json:"partner_id"`
	InitialAllocation int    `json:"initial_allocation"`
}

// CreateEventReply 创建活动响应
type CreateEventReply struct {
	EventID string `json:"event_id"`
}

// AllocateRequest 划拨请求
type AllocateRequest struct {
	PartnerID string `json:"partner_id"`
	EventID   string `json:"event_id"`
	Amount    int    `json:"amount"`
}

// AllocateReply 划拨响应
type AllocateReply struct {
	Success bool `json:"success"`
}

// ReconcileReply 对账响应
type ReconcileReply struct {
	Consistent bool                 `json:"consistent"`
	Drifted    []*ReconcileDriftDTO `json:"drifted,omitempty"`
}

// ReconcileDriftDTO 账实不符条目
type ReconcileDriftDTO struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
	Detail   string `json:"detail"`
}
