package server

import (
	"context"
	"encoding/json"

	"photogen-service/internal/biz"
	"photogen-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费审核删除事件
// 外部审核系统判定图片违规后投递 ModerationEvent，这里删除对应生成记录。
// 删除不退还信用点
type MQConsumerServer struct {
	c          rocketmq.PushConsumer
	generation *biz.GenerationUseCase
	conf       *conf.Data
	log        *log.Helper
	enabled    bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者服务
func NewMQConsumerServer(c *conf.Bootstrap, generation *biz.GenerationUseCase, logger log.Logger) *MQConsumerServer {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false}
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Data.Rocketmq.RetryTimes)),
	)
	if err != nil {
		log.NewHelper(logger).Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false}
	}

	return &MQConsumerServer{
		c:          r,
		generation: generation,
		conf:       c.Data,
		log:        log.NewHelper(logger),
		enabled:    true,
	}
}

// Start 启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Rocketmq.ModerationTopic)

	err := s.c.Subscribe(s.conf.Rocketmq.ModerationTopic, consumer.MessageSelector{}, s.handler)
	if err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Rocketmq.ModerationTopic, err)
		// 开发环境 RocketMQ 可能不可用，不阻塞应用启动
		return nil
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}

	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var event biz.ModerationEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			s.log.Errorf("Unmarshal moderation event failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		if event.RecordID == "" {
			s.log.Warnf("Moderation event without record_id, body: %s", string(msg.Body))
			continue
		}

		if err := s.generation.DeleteRecord(ctx, event.RecordID); err != nil {
			s.log.Errorf("DeleteRecord failed: record_id=%s, operator=%s, error=%v",
				event.RecordID, event.Operator, err)
			return consumer.ConsumeRetryLater, nil
		}
		s.log.Infof("Moderation delete done: record_id=%s, reason=%s, operator=%s",
			event.RecordID, event.Reason, event.Operator)
	}
	return consumer.ConsumeSuccess, nil
}
