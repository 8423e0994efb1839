package queue

import (
	"sync"

	"media-service/internal/resource"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

var (
	queueOnce    sync.Once
	defaultQueue TaskQueue
)

// DefaultTaskQueue 获取默认任务队列，按 worker.queue_driver 选择实现
func DefaultTaskQueue() TaskQueue {
	queueOnce.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		defaultQueue = NewTaskQueue(cfg.Worker)
	})
	return defaultQueue
}

// NewTaskQueue 按配置创建队列；redis 不可用时退回内存队列
func NewTaskQueue(cfg config.WorkerConfig) TaskQueue {
	if cfg.QueueDriver == config.QueueDriverRedis {
		if client := resource.DefaultRedisResource().Client(); client != nil {
			logger.Infof("使用Redis任务队列 key=%s", cfg.QueueKey)
			return NewRedisTaskQueue(client, cfg.QueueKey, cfg.QueueCapacity, cfg.PollInterval)
		}
		logger.Warnf("Redis未初始化，退回内存任务队列 key=%s", cfg.QueueKey)
	}
	return NewMemoryTaskQueue(cfg.QueueCapacity)
}

// CloseDefaultTaskQueue 关闭默认任务队列
func CloseDefaultTaskQueue() {
	if defaultQueue != nil {
		_ = defaultQueue.Close()
	}
}
