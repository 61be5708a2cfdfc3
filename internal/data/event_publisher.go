package data

import (
	"context"
	"encoding/json"

	"photogen-service/internal/biz"
	"photogen-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// generationEventPublisher 生成完成事件发布（实现 biz.GenerationEventPublisher）
// MQ 未启用时发布为空操作
type generationEventPublisher struct {
	data  *Data
	topic string
	log   *log.Helper
}

// NewGenerationEventPublisher 创建事件发布器
func NewGenerationEventPublisher(c *conf.Bootstrap, data *Data, logger log.Logger) biz.GenerationEventPublisher {
	topic := ""
	if c.Data != nil && c.Data.Rocketmq != nil {
		topic = c.Data.Rocketmq.EventTopic
	}
	return &generationEventPublisher{
		data:  data,
		topic: topic,
		log:   log.NewHelper(logger),
	}
}

// PublishGenerationEvent 发布生成完成事件
func (p *generationEventPublisher) PublishGenerationEvent(ctx context.Context, event *biz.GenerationEvent) error {
	if p.data.mq == nil || p.topic == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := primitive.NewMessage(p.topic, body)
	if _, err := p.data.mq.SendSync(ctx, msg); err != nil {
		p.log.Errorf("Send generation event failed: record_id=%s, error=%v", event.RecordID, err)
		return err
	}
	return nil
}
