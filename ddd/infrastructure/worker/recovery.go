package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/queue"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

const recoveryBatchSize = 100

// RecoveryStats 恢复结果
type RecoveryStats struct {
	Requeued int
	Failed   int
	Skipped  int
}

// PendingRecovery 接管没有任务在队列中的处理中视频
type PendingRecovery struct {
	repo   repo.MediaAssetRepository
	queue  queue.TaskQueue
	job    service.TranscodeJob
	layout config.StorageConfig
	policy vo.RetryPolicy
}

func NewPendingRecovery(
	mediaRepo repo.MediaAssetRepository,
	taskQueue queue.TaskQueue,
	job service.TranscodeJob,
	layout config.StorageConfig,
	policy vo.RetryPolicy,
) *PendingRecovery {
	return &PendingRecovery{
		repo:   mediaRepo,
		queue:  taskQueue,
		job:    job,
		layout: layout,
		policy: policy,
	}
}

// Run 处理 updated_at 早于 before 的处理中视频：次数未用完的重新入队，用完的直接记为失败
func (r *PendingRecovery) Run(ctx context.Context, before time.Time) (RecoveryStats, error) {
	var stats RecoveryStats
	var afterID uint64
	for {
		assets, err := r.repo.ListProcessing(ctx, before, afterID, recoveryBatchSize)
		if err != nil {
			return stats, fmt.Errorf("list processing media: %w", err)
		}
		if len(assets) == 0 {
			break
		}
		for _, asset := range assets {
			afterID = asset.ID()
			switch r.recoverOne(ctx, asset) {
			case recoverRequeued:
				stats.Requeued++
			case recoverFailed:
				stats.Failed++
			default:
				stats.Skipped++
			}
		}
	}

	if stats != (RecoveryStats{}) {
		logger.Infof("pending media recovered requeued=%d failed=%d skipped=%d before=%s",
			stats.Requeued, stats.Failed, stats.Skipped, before.Format(time.RFC3339))
	}
	return stats, nil
}

type recoverResult int

const (
	recoverSkipped recoverResult = iota
	recoverRequeued
	recoverFailed
)

func (r *PendingRecovery) recoverOne(ctx context.Context, asset *entity.MediaAssetEntity) recoverResult {
	outputName := uuid.NewString()
	task := entity.NewTranscodeTask(
		asset.MediaUUID(),
		asset.SourcePath(),
		path.Join(r.layout.VideoDir, outputName),
		path.Join(r.layout.ThumbnailDir, outputName+".jpg"),
		r.policy.MaxAttempts,
	)
	task.Attempt = asset.Attempts()

	if task.AttemptsExhausted() {
		cause := errors.New("retry budget exhausted before the task could be completed")
		if err := r.job.OnTerminalFailure(ctx, task, cause); err != nil {
			logger.Errorf("recover: record failure failed media_uuid=%s err=%v", asset.MediaUUID(), err)
			return recoverSkipped
		}
		return recoverFailed
	}

	err := r.queue.Enqueue(ctx, task)
	if errors.Is(err, queue.ErrQueueFull) {
		// 队列满时延后入队
		err = r.queue.EnqueueAfter(ctx, task, r.policy.Backoff)
	}
	if err != nil {
		logger.Errorf("recover: requeue failed media_uuid=%s err=%v", asset.MediaUUID(), err)
		return recoverSkipped
	}
	logger.Infof("recover: media requeued media_uuid=%s task_uuid=%s attempts=%d", asset.MediaUUID(), task.TaskUUID, task.Attempt)
	return recoverRequeued
}

// RecoveryCutoff 内存队列随进程消失，启动时所有处理中记录都无人处理；
// Redis 队列中的任务仍然存在，只接管超过 staleAfter 未更新的记录，staleAfter<=0 表示不接管
func RecoveryCutoff(cfg config.WorkerConfig, now time.Time) (time.Time, bool) {
	if cfg.QueueDriver != config.QueueDriverRedis {
		return now, true
	}
	if cfg.RecoverStaleAfter <= 0 {
		return time.Time{}, false
	}
	return now.Add(-cfg.RecoverStaleAfter), true
}
