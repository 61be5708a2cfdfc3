package biz

import (
	"context"
	"time"
)

// GenerationEvent is published to RocketMQ after a generation commits,
// for gallery/dashboard fan-out. Best effort, never blocks the caller result.
type GenerationEvent struct {
	RecordID    string    `json:"record_id"`
	AccountKind string    `json:"account_kind"`
	AccountID   string    `json:"account_id"`
	EventID     string    `json:"event_id,omitempty"`
	StyleID     string    `json:"style_id"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ModerationEvent is consumed from RocketMQ when an operator removes a
// generated image. Deletion never refunds the credit.
type ModerationEvent struct {
	RecordID  string    `json:"record_id"`
	Reason    string    `json:"reason"`
	Operator  string    `json:"operator"`
	DeletedAt time.Time `json:"deleted_at"`
}

// GenerationEventPublisher 生成完成事件发布接口
type GenerationEventPublisher interface {
	PublishGenerationEvent(ctx context.Context, event *GenerationEvent) error
}
