package event

import (
	"context"
	"fmt"

	"media-service/ddd/domain/gateway"
	"media-service/pkg/config"
	"media-service/pkg/kafka"
	"media-service/pkg/logger"
)

// jsonProducer Kafka客户端的最小依赖
type jsonProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, payload interface{}) error
}

// KafkaEventPublisher 以 mediaUUID 为 key 发布状态事件，同一资源的事件落在同一分区
type KafkaEventPublisher struct {
	producer jsonProducer
	topic    string
}

var _ gateway.MediaEventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer jsonProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// PublishStatus 发布状态事件
func (p *KafkaEventPublisher) PublishStatus(ctx context.Context, event *gateway.MediaStatusEvent) error {
	if event == nil {
		return nil
	}
	if err := p.producer.ProduceJSON(ctx, p.topic, event.MediaUUID, event); err != nil {
		return fmt.Errorf("publish media event topic=%s: %w", p.topic, err)
	}
	return nil
}

// LogEventPublisher 未启用Kafka时只记录日志
type LogEventPublisher struct{}

var _ gateway.MediaEventPublisher = LogEventPublisher{}

func (LogEventPublisher) PublishStatus(_ context.Context, event *gateway.MediaStatusEvent) error {
	if event == nil {
		return nil
	}
	logger.Info("media status event", map[string]interface{}{
		"media_uuid":    event.MediaUUID,
		"kind":          event.Kind,
		"status":        event.Status,
		"output_url":    event.OutputURL,
		"thumbnail_url": event.ThumbnailURL,
		"error_message": event.ErrorMessage,
		"attempts":      event.Attempts,
	})
	return nil
}

// NewMediaEventPublisher 按 kafka.enabled 选择实现
func NewMediaEventPublisher(cfg *config.Config) gateway.MediaEventPublisher {
	if cfg != nil && cfg.Kafka.Enabled && len(cfg.Kafka.BootstrapServers) > 0 {
		return NewKafkaEventPublisher(kafka.DefaultClient(), cfg.Kafka.Topics.MediaEvents)
	}
	return LogEventPublisher{}
}
