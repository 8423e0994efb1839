package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/queue"
	"media-service/pkg/logger"
)

const (
	// requeueTimeout 关停或重试时写回队列的超时
	requeueTimeout = 5 * time.Second
	// failureRecordAttempts 最终失败落库的进程内尝试次数，之后带原因放回队列
	failureRecordAttempts = 3
	// defaultFailureRecordDelay 落库重试的初始间隔，逐次翻倍
	defaultFailureRecordDelay = time.Second
)

// TranscodeWorker 转码工作器接口
type TranscodeWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器，等待进行中的任务返回
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedTasks   uint64
	SuccessfulTasks  uint64
	RetriedTasks     uint64
	FailedTasks      uint64
	DiscardedTasks   uint64
	CurrentlyRunning int
	StartTime        time.Time
	LastTaskTime     time.Time
}

// transcodeWorkerImpl 转码工作器实现，负责重试调度
type transcodeWorkerImpl struct {
	id          string
	taskQueue   queue.TaskQueue
	job         service.TranscodeJob
	policy      vo.RetryPolicy
	workerCount int
	recordDelay time.Duration
	running     bool
	cancel      context.CancelFunc
	stats       WorkerStats
	mu          sync.RWMutex
	statsMu     sync.Mutex
	wg          sync.WaitGroup
}

// NewTranscodeWorker 创建转码工作器
func NewTranscodeWorker(
	id string,
	taskQueue queue.TaskQueue,
	job service.TranscodeJob,
	policy vo.RetryPolicy,
	workerCount int,
) TranscodeWorker {
	if workerCount <= 0 {
		workerCount = 1
	}

	return &transcodeWorkerImpl{
		id:          id,
		taskQueue:   taskQueue,
		job:         job,
		policy:      policy,
		workerCount: workerCount,
		recordDelay: defaultFailureRecordDelay,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *transcodeWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.updateStats(func(stats *WorkerStats) {
		stats.StartTime = time.Now()
	})

	logger.Infof("Starting transcode worker %s with %d goroutines max_attempts=%d backoff=%s",
		w.id, w.workerCount, w.policy.MaxAttempts, w.policy.Backoff)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}
	return nil
}

// Stop 停止工作器
func (w *transcodeWorkerImpl) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	logger.Infof("Stopping transcode worker %s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	// 等待协程退出时不持有锁
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	logger.Infof("Transcode worker %s stopped", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *transcodeWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *transcodeWorkerImpl) GetStats() WorkerStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *transcodeWorkerImpl) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger.Debugf("Worker %s-%d started", w.id, workerID)
	defer logger.Debugf("Worker %s-%d stopped", w.id, workerID)

	for {
		if ctx.Err() != nil {
			return
		}
		task, err := w.taskQueue.Dequeue(ctx)
		if err != nil {
			var corrupt *queue.CorruptTaskError
			if errors.As(err, &corrupt) {
				w.failCorrupt(ctx, corrupt)
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			logger.Warnf("Worker %s-%d failed to dequeue task: %v", w.id, workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second): // 避免忙等待
			}
			continue
		}
		if task == nil {
			continue
		}

		w.processTask(ctx, task, workerID)
	}
}

// processTask 执行一次尝试并决定重试或终止
func (w *transcodeWorkerImpl) processTask(ctx context.Context, task *entity.TranscodeTask, workerID int) {
	// 上次只差落库的失败任务，不再执行转码
	if task.HasPendingFailure() {
		logger.Infof("Worker %s-%d recording deferred failure task=%s media_uuid=%s", w.id, workerID, task.TaskUUID, task.MediaUUID)
		w.fail(ctx, task, errors.New(task.PendingFailure))
		return
	}

	attempt := task.BeginAttempt()
	logger.Infof("Worker %s-%d processing task=%s media_uuid=%s attempt=%d/%d",
		w.id, workerID, task.TaskUUID, task.MediaUUID, attempt, w.policy.MaxAttempts)

	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning++
		stats.LastTaskTime = time.Now()
	})
	defer w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning--
		stats.ProcessedTasks++
	})

	result := w.job.Execute(ctx, task)
	switch result.Outcome {
	case vo.JobSucceeded:
		w.updateStats(func(stats *WorkerStats) { stats.SuccessfulTasks++ })

	case vo.JobDiscarded:
		w.updateStats(func(stats *WorkerStats) { stats.DiscardedTasks++ })

	case vo.JobRetryable:
		// 关停打断的尝试不计次数，原样放回队列
		if ctx.Err() != nil {
			w.requeueInterrupted(task)
			return
		}
		// 全局策略与任务自带的次数上限取较小者
		if w.policy.ShouldRetry(attempt) && !task.AttemptsExhausted() {
			if err := w.scheduleRetry(task, result.Err); err == nil {
				return
			}
		}
		w.fail(ctx, task, result.Err)

	default:
		w.fail(ctx, task, result.Err)
	}
}

// scheduleRetry 退避后重新入队
func (w *transcodeWorkerImpl) scheduleRetry(task *entity.TranscodeTask, cause error) error {
	task.MarkRetry(cause)
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()

	if err := w.taskQueue.EnqueueAfter(ctx, task, w.policy.Backoff); err != nil {
		logger.Errorf("schedule retry failed task=%s media_uuid=%s err=%v", task.TaskUUID, task.MediaUUID, err)
		return err
	}
	w.updateStats(func(stats *WorkerStats) { stats.RetriedTasks++ })
	logger.Warnf("transcode attempt failed, retry scheduled task=%s media_uuid=%s attempt=%d backoff=%s err=%v",
		task.TaskUUID, task.MediaUUID, task.Attempt, w.policy.Backoff, cause)
	return nil
}

// requeueInterrupted 关停时回滚次数并放回队列
func (w *transcodeWorkerImpl) requeueInterrupted(task *entity.TranscodeTask) {
	task.Attempt--
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()
	if err := w.taskQueue.Enqueue(ctx, task); err != nil {
		logger.Warnf("task interrupted by shutdown and could not be requeued task=%s media_uuid=%s err=%v",
			task.TaskUUID, task.MediaUUID, err)
		return
	}
	logger.Infof("task interrupted by shutdown, requeued task=%s media_uuid=%s", task.TaskUUID, task.MediaUUID)
}

// fail 记录最终失败，关停中也要写完；多次落库失败后带原因放回队列
func (w *transcodeWorkerImpl) fail(ctx context.Context, task *entity.TranscodeTask, cause error) {
	recordCtx := context.WithoutCancel(ctx)
	delay := w.recordDelay
	var err error
	for i := 0; i < failureRecordAttempts; i++ {
		if i > 0 {
			if !sleepCtx(ctx, delay) {
				break
			}
			delay *= 2
		}
		if err = w.job.OnTerminalFailure(recordCtx, task, cause); err == nil {
			w.updateStats(func(stats *WorkerStats) { stats.FailedTasks++ })
			return
		}
		logger.Warnf("record terminal failure failed task=%s media_uuid=%s kind=%s try=%d err=%v",
			task.TaskUUID, task.MediaUUID, vo.KindOf(cause), i+1, err)
	}
	w.deferFailure(task, cause)
}

// deferFailure 失败原因随任务回到队列，退避后再次落库
func (w *transcodeWorkerImpl) deferFailure(task *entity.TranscodeTask, cause error) {
	task.MarkFailurePending(cause)
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()
	if err := w.taskQueue.EnqueueAfter(ctx, task, w.policy.Backoff); err != nil {
		// 记录仍是处理中，由启动时的恢复流程接手
		logger.Errorf("terminal failure could not be recorded or requeued task=%s media_uuid=%s err=%v",
			task.TaskUUID, task.MediaUUID, err)
		return
	}
	logger.Warnf("terminal failure deferred task=%s media_uuid=%s backoff=%s", task.TaskUUID, task.MediaUUID, w.policy.Backoff)
}

// failCorrupt 无法解析的任务：能识别资源时直接记为失败
func (w *transcodeWorkerImpl) failCorrupt(ctx context.Context, corrupt *queue.CorruptTaskError) {
	if corrupt.MediaUUID == "" {
		logger.Errorf("dropping unreadable task payload=%q err=%v", corrupt.Payload, corrupt.Err)
		return
	}
	logger.Errorf("unreadable task, marking media failed media_uuid=%s err=%v", corrupt.MediaUUID, corrupt.Err)
	task := &entity.TranscodeTask{TaskUUID: corrupt.TaskUUID, MediaUUID: corrupt.MediaUUID, EnqueuedAt: time.Now()}
	w.fail(ctx, task, vo.NewJobError(vo.JobErrorInvalidTask, "decode task", corrupt.Err))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// updateStats 更新统计信息
func (w *transcodeWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	updateFunc(&w.stats)
}
