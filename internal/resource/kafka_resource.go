package resource

import (
	"media-service/pkg/config"
	"media-service/pkg/kafka"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
)

// KafkaResource 媒体事件生产者，kafka.enabled 为 false 时不建立连接
type KafkaResource struct {
	opened bool
}

type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil || !cfg.Kafka.Enabled {
		logger.Infof("kafka resource disabled")
		return
	}
	if len(cfg.Kafka.BootstrapServers) == 0 {
		panic("kafka bootstrap_servers is required when kafka is enabled")
	}
	kafka.DefaultClient().MustOpen()
	r.opened = true

	// 主题创建失败不阻塞启动，生产时由 broker 自动创建或报错
	if err := kafka.DefaultClient().EnsureTopic(cfg.Kafka.Topics.MediaEvents, 1, 1); err != nil {
		logger.Warnf("ensure kafka topic failed topic=%s error=%v", cfg.Kafka.Topics.MediaEvents, err)
	}
}

func (r *KafkaResource) Close() {
	if r.opened {
		kafka.DefaultClient().Close()
	}
}
