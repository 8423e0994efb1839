package worker

import (
	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/event"
	"media-service/ddd/infrastructure/executor"
	"media-service/ddd/infrastructure/storage"
	"media-service/internal/resource"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// NewTranscodeJobFromConfig 按配置组装转码作业
func NewTranscodeJobFromConfig(cfg *config.Config, mediaRepo repo.MediaAssetRepository, store gateway.StorageGateway) (service.TranscodeJob, error) {
	hls, err := vo.NewHLSConfig(cfg.Transcode.SegmentSeconds, cfg.Transcode.PlaylistName, cfg.Transcode.ThumbnailOffset)
	if err != nil {
		return nil, err
	}

	var publisher gateway.ObjectPublisher
	if minioRes := resource.DefaultMinioResource(); minioRes.Enabled() {
		publisher = storage.NewMinioStorage(minioRes.GetClient(), minioRes.GetBucketName())
	} else if cfg.Transcode.PublishObjects {
		logger.Warnf("transcode.publish_objects is set but minio is disabled, objects stay local")
	}

	return service.NewTranscodeJob(
		mediaRepo,
		store,
		executor.NewFFmpegEncoder(cfg.Transcode.FFmpeg),
		publisher,
		event.NewMediaEventPublisher(cfg),
		service.TranscodeJobOptions{
			HLS:            hls,
			Timeout:        cfg.Transcode.FFmpeg.Timeout,
			PublishObjects: cfg.Transcode.PublishObjects && publisher != nil,
		},
	), nil
}

// RetryPolicyFromConfig 重试策略
func RetryPolicyFromConfig(cfg *config.Config) vo.RetryPolicy {
	return vo.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.Retry.Backoff)
}
