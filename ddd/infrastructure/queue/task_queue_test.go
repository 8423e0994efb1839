package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/entity"
	"media-service/pkg/config"
)

func newTask(media string) *entity.TranscodeTask {
	return entity.NewTranscodeTask(media, "tmp/uploads/"+media+".mp4", "media/videos/"+media, "media/thumbnails/"+media+".jpg", 3)
}

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryTaskQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newTask("a")))
	require.NoError(t, q.Enqueue(ctx, newTask("b")))
	assert.Equal(t, 2, q.Size())

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.MediaUUID)

	second, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second.MediaUUID)

	none, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.True(t, q.IsEmpty())
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryTaskQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newTask("a")))
	assert.ErrorIs(t, q.Enqueue(ctx, newTask("b")), ErrQueueFull)
	assert.Error(t, q.Enqueue(ctx, nil))
}

func TestMemoryQueueEnqueueAfterHonoursDelay(t *testing.T) {
	q := NewMemoryTaskQueue(4)
	ctx := context.Background()

	require.NoError(t, q.EnqueueAfter(ctx, newTask("late"), 50*time.Millisecond))
	task, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, task, "delayed task must not be ready yet")
	assert.Equal(t, 1, q.GetMetrics().DelayedCount)

	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	task, err = q.Dequeue(dctx)
	require.NoError(t, err)
	assert.Equal(t, "late", task.MediaUUID)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 0, q.GetMetrics().DelayedCount)
}

func TestMemoryQueueCloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryTaskQueue(4)
	require.NoError(t, q.EnqueueAfter(context.Background(), newTask("never"), time.Hour))

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())
	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrQueueClosed))
	case <-time.After(time.Second):
		t.Fatal("dequeue not released by close")
	}

	assert.True(t, q.IsClosed())
	assert.Equal(t, 0, q.GetMetrics().DelayedCount)
	assert.ErrorIs(t, q.Enqueue(context.Background(), newTask("x")), ErrQueueClosed)
	assert.ErrorIs(t, q.EnqueueAfter(context.Background(), newTask("x"), time.Second), ErrQueueClosed)
	assert.NoError(t, q.Close())
}

func TestMemoryQueueDequeueHonoursContext(t *testing.T) {
	q := NewMemoryTaskQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTaskCodecRoundTrip(t *testing.T) {
	task := newTask("m1")
	task.BeginAttempt()
	task.MarkRetry(errors.New("exit status 1"))

	payload, err := encodeTask(task)
	require.NoError(t, err)
	got, err := decodeTask(payload)
	require.NoError(t, err)

	assert.Equal(t, task.TaskUUID, got.TaskUUID)
	assert.Equal(t, 1, got.Attempt)
	assert.Equal(t, "exit status 1", got.LastError)
	assert.True(t, task.EnqueuedAt.Equal(got.EnqueuedAt))

	task.MarkFailurePending(errors.New("source_missing"))
	payload, err = encodeTask(task)
	require.NoError(t, err)
	got, err = decodeTask(payload)
	require.NoError(t, err)
	assert.True(t, got.HasPendingFailure())
}

func TestDecodeCorruptTaskKeepsMediaUUID(t *testing.T) {
	_, err := decodeTask(`{"task_uuid":"t-1","media_uuid":"m-1","attempt":"two"}`)
	var corrupt *CorruptTaskError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "m-1", corrupt.MediaUUID)
	assert.Equal(t, "t-1", corrupt.TaskUUID)

	_, err = decodeTask(`{"task_uuid":"t-2"}`)
	require.ErrorAs(t, err, &corrupt)
	assert.Empty(t, corrupt.MediaUUID)

	_, err = decodeTask("{not json")
	require.ErrorAs(t, err, &corrupt)
	assert.Empty(t, corrupt.MediaUUID)
	assert.Equal(t, "{not json", corrupt.Payload)
}

func TestNewTaskQueueFallsBackToMemory(t *testing.T) {
	q := NewTaskQueue(config.WorkerConfig{QueueDriver: config.QueueDriverRedis, QueueCapacity: 3})
	_, ok := q.(*MemoryTaskQueue)
	assert.True(t, ok)
}

func TestRedisKeys(t *testing.T) {
	q := NewRedisTaskQueue(nil, "", 0, 0)
	ready, delayed := q.Keys()
	assert.Equal(t, "media:transcode:ready", ready)
	assert.Equal(t, "media:transcode:delayed", delayed)
}

// 需要真实 Redis：MEDIA_SVC_TEST_REDIS_ADDR=127.0.0.1:6379
func TestRedisQueueAgainstServer(t *testing.T) {
	addr := os.Getenv("MEDIA_SVC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEDIA_SVC_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	key := "media:test:" + time.Now().Format("150405.000000")
	q := NewRedisTaskQueue(client, key, 10, 50*time.Millisecond)
	ready, delayed := q.Keys()
	defer client.Del(ctx, ready, delayed)

	require.NoError(t, q.Enqueue(ctx, newTask("now")))
	require.NoError(t, q.EnqueueAfter(ctx, newTask("later"), 100*time.Millisecond))

	got, err := q.TryDequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "now", got.MediaUUID)

	got, err = q.TryDequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	dctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	got, err = q.Dequeue(dctx)
	require.NoError(t, err)
	assert.Equal(t, "later", got.MediaUUID)
}
