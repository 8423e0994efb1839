package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"media-service/ddd/domain/entity"
	"media-service/pkg/logger"
)

const promoteBatch = 100

// promoteScript 将到期的延迟任务原子地移入就绪列表
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
	if redis.call('ZREM', KEYS[1], member) == 1 then
		redis.call('LPUSH', KEYS[2], member)
	end
end
return #due
`)

// RedisTaskQueue 基于Redis的任务队列：就绪任务在 LIST，延迟任务在 ZSET（score 为到期毫秒时间戳）
type RedisTaskQueue struct {
	client       redis.UniversalClient
	readyKey     string
	delayedKey   string
	capacity     int
	pollInterval time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ TaskQueue = (*RedisTaskQueue)(nil)

// NewRedisTaskQueue 创建Redis任务队列；capacity<=0 不限制长度
func NewRedisTaskQueue(client redis.UniversalClient, key string, capacity int, pollInterval time.Duration) *RedisTaskQueue {
	if key == "" {
		key = "media:transcode"
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &RedisTaskQueue{
		client:       client,
		readyKey:     key + ":ready",
		delayedKey:   key + ":delayed",
		capacity:     capacity,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
	}
}

// Keys 返回就绪与延迟队列的键名
func (q *RedisTaskQueue) Keys() (ready, delayed string) {
	return q.readyKey, q.delayedKey
}

// Enqueue 入队任务
func (q *RedisTaskQueue) Enqueue(ctx context.Context, task *entity.TranscodeTask) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	if q.IsClosed() {
		return ErrQueueClosed
	}
	if q.capacity > 0 {
		n, err := q.client.LLen(ctx, q.readyKey).Result()
		if err != nil {
			return fmt.Errorf("redis llen: %w", err)
		}
		if n >= int64(q.capacity) {
			return ErrQueueFull
		}
	}
	if err := q.client.LPush(ctx, q.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// EnqueueAfter 写入延迟队列
func (q *RedisTaskQueue) EnqueueAfter(ctx context.Context, task *entity.TranscodeTask, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, task)
	}
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	if q.IsClosed() {
		return ErrQueueClosed
	}
	readyAt := time.Now().Add(delay).UnixMilli()
	if err := q.client.ZAdd(ctx, q.delayedKey, redis.Z{Score: float64(readyAt), Member: payload}).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// Dequeue 阻塞出队，每个轮询周期顺带搬运到期的延迟任务
func (q *RedisTaskQueue) Dequeue(ctx context.Context) (*entity.TranscodeTask, error) {
	for {
		if q.IsClosed() {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := q.promoteDue(ctx); err != nil {
			logger.Warnf("promote delayed tasks failed key=%s err=%v", q.delayedKey, err)
		}

		res, err := q.client.BRPop(ctx, q.pollInterval, q.readyKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warnf("redis brpop failed key=%s err=%v", q.readyKey, err)
			if !q.sleep(ctx) {
				return nil, ctx.Err()
			}
			continue
		}
		// BRPOP 返回 [key, value]
		if len(res) != 2 {
			continue
		}
		return decodeTask(res[1])
	}
}

// TryDequeue 非阻塞出队
func (q *RedisTaskQueue) TryDequeue(ctx context.Context) (*entity.TranscodeTask, error) {
	if q.IsClosed() {
		return nil, ErrQueueClosed
	}
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}
	payload, err := q.client.RPop(ctx, q.readyKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis rpop: %w", err)
	}
	return decodeTask(payload)
}

// Size 就绪任务数
func (q *RedisTaskQueue) Size() int {
	if q.IsClosed() {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := q.client.LLen(ctx, q.readyKey).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// IsEmpty 检查队列是否为空
func (q *RedisTaskQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Close 关闭队列，连接由资源层管理
func (q *RedisTaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *RedisTaskQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *RedisTaskQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return promoteScript.Run(ctx, q.client, []string{q.delayedKey, q.readyKey}, now, promoteBatch).Err()
}

func (q *RedisTaskQueue) sleep(ctx context.Context) bool {
	t := time.NewTimer(q.pollInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.done:
		return true
	case <-ctx.Done():
		return false
	}
}

func encodeTask(task *entity.TranscodeTask) (string, error) {
	if task == nil {
		return "", errors.New("task cannot be nil")
	}
	b, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}
	return string(b), nil
}

// CorruptTaskError 已出队的负载无法还原为任务；能读出 media_uuid 时一并返回，由调用方记录失败
type CorruptTaskError struct {
	MediaUUID string
	TaskUUID  string
	Payload   string
	Err       error
}

func (e *CorruptTaskError) Error() string {
	return fmt.Sprintf("corrupt task media_uuid=%q: %v", e.MediaUUID, e.Err)
}

func (e *CorruptTaskError) Unwrap() error { return e.Err }

func decodeTask(payload string) (*entity.TranscodeTask, error) {
	var task entity.TranscodeTask
	err := json.Unmarshal([]byte(payload), &task)
	if err == nil && task.MediaUUID != "" {
		return &task, nil
	}
	if err == nil {
		err = errors.New("media_uuid is empty")
	}

	corrupt := &CorruptTaskError{Payload: payload, Err: fmt.Errorf("decode task: %w", err)}
	var ids struct {
		TaskUUID  string `json:"task_uuid"`
		MediaUUID string `json:"media_uuid"`
	}
	if json.Unmarshal([]byte(payload), &ids) == nil {
		corrupt.TaskUUID = ids.TaskUUID
		corrupt.MediaUUID = ids.MediaUUID
	}
	return nil, corrupt
}
