package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/pkg/logger"
)

// TranscodeJob 单次转码作业，不负责重试调度
type TranscodeJob interface {
	// Execute 执行一次转码尝试，结果由调用方决定是否重试
	Execute(ctx context.Context, task *entity.TranscodeTask) vo.JobResult

	// OnTerminalFailure 重试耗尽或不可重试时落库失败状态，可重复调用
	OnTerminalFailure(ctx context.Context, task *entity.TranscodeTask, cause error) error
}

// TranscodeJobOptions 作业参数
type TranscodeJobOptions struct {
	HLS            vo.HLSConfig
	Timeout        time.Duration // 单次尝试的编码超时，<=0 不限制
	PublishObjects bool          // 成功后同步到对象存储
}

// transcodeJobImpl 转码作业实现
type transcodeJobImpl struct {
	repo      repo.MediaAssetRepository
	storage   gateway.StorageGateway
	encoder   gateway.Encoder
	publisher gateway.ObjectPublisher
	events    gateway.MediaEventPublisher
	opts      TranscodeJobOptions
}

// NewTranscodeJob 创建转码作业；publisher、events 可以为 nil
func NewTranscodeJob(
	mediaRepo repo.MediaAssetRepository,
	storage gateway.StorageGateway,
	encoder gateway.Encoder,
	publisher gateway.ObjectPublisher,
	events gateway.MediaEventPublisher,
	opts TranscodeJobOptions,
) TranscodeJob {
	if opts.HLS.PlaylistName == "" {
		opts.HLS = vo.DefaultHLSConfig()
	}
	return &transcodeJobImpl{
		repo:      mediaRepo,
		storage:   storage,
		encoder:   encoder,
		publisher: publisher,
		events:    events,
		opts:      opts,
	}
}

// Execute 执行一次转码尝试
func (j *transcodeJobImpl) Execute(ctx context.Context, task *entity.TranscodeTask) vo.JobResult {
	asset, err := j.repo.GetMedia(ctx, task.MediaUUID)
	if err != nil {
		return vo.Retryable(vo.NewJobError(vo.JobErrorPersistence, "load asset", err))
	}
	if asset == nil {
		return vo.Terminal(vo.NewJobError(vo.JobErrorAssetMissing, "load asset", fmt.Errorf("media %s not found", task.MediaUUID)))
	}
	// 重复投递：已是最终状态直接丢弃
	if asset.IsSettled() {
		logger.Infof("媒体已处于最终状态，丢弃重复任务 media_uuid=%s status=%s task_uuid=%s", asset.MediaUUID(), asset.Status(), task.TaskUUID)
		return vo.Discarded()
	}
	if err := asset.RecordAttempt(task.Attempt); err == nil {
		if err := j.repo.TouchAttempt(ctx, asset.MediaUUID(), asset.Attempts()); err != nil {
			logger.Warnf("记录执行次数失败 media_uuid=%s attempt=%d err=%v", asset.MediaUUID(), task.Attempt, err)
		}
	}

	exists, err := j.storage.Exists(ctx, task.InputPath)
	if err != nil {
		return vo.Retryable(vo.NewJobError(vo.JobErrorStorageWrite, "stat source", err))
	}
	if !exists {
		return vo.Terminal(vo.NewJobError(vo.JobErrorSourceMissing, "stat source", fmt.Errorf("source %s does not exist", task.InputPath)))
	}

	if err := j.storage.EnsureDir(ctx, task.OutputDir); err != nil {
		return vo.Retryable(vo.NewJobError(vo.JobErrorStorageWrite, "create output dir", err))
	}
	if err := j.storage.EnsureDir(ctx, path.Dir(task.ThumbnailPath)); err != nil {
		return vo.Retryable(vo.NewJobError(vo.JobErrorStorageWrite, "create thumbnail dir", err))
	}

	playlist := j.opts.HLS.PlaylistPath(task.OutputDir)
	if err := j.encode(ctx, task, playlist); err != nil {
		return vo.Failed(err)
	}

	if j.opts.PublishObjects && j.publisher != nil {
		if err := j.publish(ctx, task); err != nil {
			return vo.Retryable(vo.NewJobError(vo.JobErrorStorageWrite, "publish objects", err))
		}
	}

	from := asset.Status()
	if err := asset.Succeed(playlist, task.ThumbnailPath); err != nil {
		return vo.Terminal(err)
	}
	if err := j.repo.UpdateMediaStatus(ctx, asset, from); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			logger.Warnf("媒体状态已被其他任务更新，放弃本次结果 media_uuid=%s", asset.MediaUUID())
			return vo.Discarded()
		}
		return vo.Retryable(vo.NewJobError(vo.JobErrorPersistence, "save success", err))
	}

	if err := j.storage.Delete(ctx, task.InputPath); err != nil {
		logger.Warnf("删除临时源文件失败 media_uuid=%s path=%s err=%v", asset.MediaUUID(), task.InputPath, err)
	}
	j.notify(ctx, asset)

	logger.Info("转码完成", map[string]interface{}{
		"media_uuid": asset.MediaUUID(),
		"task_uuid":  task.TaskUUID,
		"attempt":    task.Attempt,
		"playlist":   playlist,
	})
	return vo.Succeeded()
}

// encode 抽帧与切片共用一个超时
func (j *transcodeJobImpl) encode(ctx context.Context, task *entity.TranscodeTask, playlist string) error {
	attemptCtx := ctx
	if j.opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, j.opts.Timeout)
		defer cancel()
	}

	input := j.storage.LocalPath(task.InputPath)
	if err := j.encoder.ExtractFrame(attemptCtx, input, j.opts.HLS.ThumbnailOffset, j.storage.LocalPath(task.ThumbnailPath)); err != nil {
		return classifyEncoderError(attemptCtx, "extract frame", err)
	}
	if err := j.encoder.TranscodeToSegmentedStream(attemptCtx, input, j.opts.HLS.SegmentDuration, j.storage.LocalPath(playlist)); err != nil {
		return classifyEncoderError(attemptCtx, "segment stream", err)
	}
	return nil
}

// classifyEncoderError 超时与未分类错误统一视为编码失败
func classifyEncoderError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return vo.NewJobError(vo.JobErrorEncodingFailed, op, fmt.Errorf("timed out: %w", err))
	}
	var je *vo.JobError
	if errors.As(err, &je) {
		return err
	}
	return vo.NewJobError(vo.JobErrorEncodingFailed, op, err)
}

// publish 上传播放列表、分片与封面
func (j *transcodeJobImpl) publish(ctx context.Context, task *entity.TranscodeTask) error {
	files, err := j.storage.List(ctx, task.OutputDir)
	if err != nil {
		return err
	}
	files = append(files, task.ThumbnailPath)

	objects := make([]gateway.UploadObject, 0, len(files))
	for _, rel := range files {
		objects = append(objects, gateway.UploadObject{
			LocalPath:   j.storage.LocalPath(rel),
			ObjectKey:   rel,
			ContentType: contentTypeOf(rel),
		})
	}
	return j.publisher.UploadObjects(ctx, objects)
}

func contentTypeOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// OnTerminalFailure 落库失败状态并通知
func (j *transcodeJobImpl) OnTerminalFailure(ctx context.Context, task *entity.TranscodeTask, cause error) error {
	asset, err := j.repo.GetMedia(ctx, task.MediaUUID)
	if err != nil {
		logger.Errorf("加载媒体失败，无法记录最终失败 media_uuid=%s err=%v", task.MediaUUID, err)
		return err
	}
	if asset == nil {
		logger.Warnf("媒体记录不存在，忽略最终失败 media_uuid=%s cause=%v", task.MediaUUID, cause)
		return nil
	}
	if asset.IsSettled() {
		return nil
	}

	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	from := asset.Status()
	_ = asset.RecordAttempt(task.Attempt)
	if err := asset.Fail(reason); err != nil {
		return err
	}
	if err := j.repo.UpdateMediaStatus(ctx, asset, from); err != nil {
		if errors.Is(err, repo.ErrStatusConflict) {
			return nil
		}
		logger.Errorf("保存失败状态出错 media_uuid=%s err=%v", asset.MediaUUID(), err)
		return err
	}

	j.notify(ctx, asset)
	logger.Error("转码最终失败", map[string]interface{}{
		"media_uuid":  asset.MediaUUID(),
		"task_uuid":   task.TaskUUID,
		"attempts":    asset.Attempts(),
		"error":       reason,
		"source_path": task.InputPath,
	})
	return nil
}

// notify 事件发布失败只记录日志
func (j *transcodeJobImpl) notify(ctx context.Context, asset *entity.MediaAssetEntity) {
	if j.events == nil {
		return
	}
	if err := j.events.PublishStatus(ctx, NewMediaStatusEvent(asset, j.storage)); err != nil {
		logger.Warnf("发布媒体状态事件失败 media_uuid=%s status=%s err=%v", asset.MediaUUID(), asset.Status(), err)
	}
}

// NewMediaStatusEvent 由实体生成状态事件
func NewMediaStatusEvent(asset *entity.MediaAssetEntity, storage gateway.StorageGateway) *gateway.MediaStatusEvent {
	event := &gateway.MediaStatusEvent{
		MediaUUID:    asset.MediaUUID(),
		Kind:         asset.Kind().String(),
		Status:       asset.Status().String(),
		ErrorMessage: asset.ErrorMessage(),
		Attempts:     asset.Attempts(),
		OccurredAt:   asset.UpdatedAt(),
	}
	if out := asset.OutputPath(); out != nil {
		event.OutputURL = storage.PublicURL(*out)
	}
	if thumb := asset.ThumbnailPath(); thumb != nil {
		event.ThumbnailURL = storage.PublicURL(*thumb)
	}
	return event
}
