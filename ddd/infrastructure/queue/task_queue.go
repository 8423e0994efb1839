package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/pkg/logger"
)

var (
	// ErrQueueClosed 队列已关闭
	ErrQueueClosed = errors.New("queue is closed")
	// ErrQueueFull 队列已满
	ErrQueueFull = errors.New("queue is full")
)

// TaskQueue 任务队列接口
type TaskQueue interface {
	// Enqueue 入队任务，队列满时立即返回 ErrQueueFull
	Enqueue(ctx context.Context, task *entity.TranscodeTask) error

	// EnqueueAfter 延迟 delay 后入队
	EnqueueAfter(ctx context.Context, task *entity.TranscodeTask, delay time.Duration) error

	// Dequeue 出队任务（阻塞）
	Dequeue(ctx context.Context) (*entity.TranscodeTask, error)

	// TryDequeue 尝试出队任务（非阻塞），队列为空返回 nil, nil
	TryDequeue(ctx context.Context) (*entity.TranscodeTask, error)

	// Size 获取就绪任务数
	Size() int

	// IsEmpty 检查队列是否为空
	IsEmpty() bool

	// Close 关闭队列
	Close() error

	// IsClosed 检查队列是否已关闭
	IsClosed() bool
}

// MemoryTaskQueue 基于内存的任务队列实现
type MemoryTaskQueue struct {
	queue   chan *entity.TranscodeTask
	done    chan struct{}
	closed  bool
	mu      sync.RWMutex
	timers  map[*time.Timer]struct{}
	metrics *QueueMetrics
}

// QueueMetrics 队列指标
type QueueMetrics struct {
	EnqueueCount uint64
	DequeueCount uint64
	DelayedCount int
	MaxSize      int
	CurrentSize  int
	mu           sync.RWMutex
}

// NewMemoryTaskQueue 创建内存任务队列
func NewMemoryTaskQueue(capacity int) *MemoryTaskQueue {
	if capacity <= 0 {
		capacity = 1000 // 默认容量
	}

	return &MemoryTaskQueue{
		queue:  make(chan *entity.TranscodeTask, capacity),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
		metrics: &QueueMetrics{
			MaxSize: capacity,
		},
	}
}

// Enqueue 入队任务
func (q *MemoryTaskQueue) Enqueue(ctx context.Context, task *entity.TranscodeTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.queue <- task:
		q.updateEnqueueMetrics()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// EnqueueAfter 延迟入队；到期时队列满则阻塞等待空位
func (q *MemoryTaskQueue) EnqueueAfter(ctx context.Context, task *entity.TranscodeTask, delay time.Duration) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return q.Enqueue(ctx, task)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		q.setDelayed(-1)

		select {
		case q.queue <- task:
			q.updateEnqueueMetrics()
		case <-q.done:
			logger.Warnf("队列已关闭，丢弃延迟任务 task_uuid=%s media_uuid=%s", task.TaskUUID, task.MediaUUID)
		}
	})
	q.timers[timer] = struct{}{}
	q.setDelayed(1)
	return nil
}

// Dequeue 出队任务（阻塞）
func (q *MemoryTaskQueue) Dequeue(ctx context.Context) (*entity.TranscodeTask, error) {
	if q.IsClosed() {
		return nil, ErrQueueClosed
	}

	select {
	case task := <-q.queue:
		q.updateDequeueMetrics()
		return task, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryDequeue 尝试出队任务（非阻塞）
func (q *MemoryTaskQueue) TryDequeue(ctx context.Context) (*entity.TranscodeTask, error) {
	if q.IsClosed() {
		return nil, ErrQueueClosed
	}

	select {
	case task := <-q.queue:
		q.updateDequeueMetrics()
		return task, nil
	default:
		return nil, nil // 队列为空
	}
}

// Size 获取队列大小
func (q *MemoryTaskQueue) Size() int {
	if q.IsClosed() {
		return 0
	}
	return len(q.queue)
}

// IsEmpty 检查队列是否为空
func (q *MemoryTaskQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Close 关闭队列，未到期的延迟任务被丢弃
func (q *MemoryTaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	for t := range q.timers {
		if t.Stop() {
			q.setDelayed(-1)
		}
	}
	q.timers = map[*time.Timer]struct{}{}
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryTaskQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// GetMetrics 获取队列指标
func (q *MemoryTaskQueue) GetMetrics() QueueMetrics {
	q.metrics.mu.RLock()
	snapshot := QueueMetrics{
		EnqueueCount: q.metrics.EnqueueCount,
		DequeueCount: q.metrics.DequeueCount,
		DelayedCount: q.metrics.DelayedCount,
		MaxSize:      q.metrics.MaxSize,
	}
	q.metrics.mu.RUnlock()

	snapshot.CurrentSize = q.Size()
	return snapshot
}

// updateEnqueueMetrics 更新入队指标
func (q *MemoryTaskQueue) updateEnqueueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.EnqueueCount++
}

// updateDequeueMetrics 更新出队指标
func (q *MemoryTaskQueue) updateDequeueMetrics() {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.DequeueCount++
}

func (q *MemoryTaskQueue) setDelayed(delta int) {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	q.metrics.DelayedCount += delta
}
