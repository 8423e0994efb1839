package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"

	"media-service/ddd/application/cqe"
	"media-service/ddd/application/dto"
	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/service"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/persistence"
	"media-service/ddd/infrastructure/event"
	"media-service/ddd/infrastructure/queue"
	"media-service/ddd/infrastructure/storage"
	"media-service/internal/resource"
	"media-service/pkg/assert"
	"media-service/pkg/config"
	"media-service/pkg/errno"
	"media-service/pkg/logger"
)

var (
	singleMediaApp MediaApp
	onceMediaApp   sync.Once
)

type MediaApp interface {
	// SubmitMedia 上传媒体：图片同步落盘，视频入队转码
	SubmitMedia(ctx context.Context, req *cqe.SubmitMediaCqe) (*dto.MediaAssetDTO, error)
	// GetMedia 查询媒体处理状态
	GetMedia(ctx context.Context, mediaUUID string) (*dto.MediaAssetDTO, error)
}

// MediaAppOptions 上传策略与存储布局
type MediaAppOptions struct {
	Policy      vo.UploadPolicy
	Layout      config.StorageConfig
	MaxAttempts int
}

type mediaAppImpl struct {
	mediaRepo repo.MediaAssetRepository
	storage   gateway.StorageGateway
	taskQueue queue.TaskQueue
	events    gateway.MediaEventPublisher
	opts      MediaAppOptions
}

func DefaultMediaApp() MediaApp {
	assert.NotCircular()
	onceMediaApp.Do(func() {
		cfg := config.GetGlobalConfig()
		if cfg == nil {
			cfg = config.Default()
		}
		singleMediaApp = NewMediaAppWith(
			persistence.NewMediaAssetRepository(resource.DefaultMysqlResource().MainDB()),
			storage.DefaultLocalStorage(),
			queue.DefaultTaskQueue(),
			event.NewMediaEventPublisher(cfg),
			MediaAppOptionsFromConfig(cfg),
		)
	})
	assert.NotNil(singleMediaApp)
	return singleMediaApp
}

// MediaAppOptionsFromConfig 按配置生成上传参数
func MediaAppOptionsFromConfig(cfg *config.Config) MediaAppOptions {
	return MediaAppOptions{
		Policy:      vo.NewUploadPolicy(cfg.Upload.MaxSizeBytes, cfg.Upload.ImageExtensions, cfg.Upload.VideoExtensions),
		Layout:      cfg.Storage,
		MaxAttempts: cfg.Retry.MaxAttempts,
	}
}

// NewMediaAppWith 注入依赖创建应用服务，events 可以为 nil
func NewMediaAppWith(
	mediaRepo repo.MediaAssetRepository,
	store gateway.StorageGateway,
	q queue.TaskQueue,
	events gateway.MediaEventPublisher,
	opts MediaAppOptions,
) MediaApp {
	if opts.Policy.MaxSizeBytes <= 0 {
		opts.Policy = vo.DefaultUploadPolicy()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = vo.DefaultRetryPolicy().MaxAttempts
	}
	return &mediaAppImpl{
		mediaRepo: mediaRepo,
		storage:   store,
		taskQueue: q,
		events:    events,
		opts:      opts,
	}
}

func (m *mediaAppImpl) SubmitMedia(ctx context.Context, req *cqe.SubmitMediaCqe) (*dto.MediaAssetDTO, error) {
	// 所有校验都在创建任何状态之前完成
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kind, err := vo.ParseMediaKind(req.Kind)
	if err != nil {
		return nil, validationBizError(err)
	}
	ext, err := m.opts.Policy.Validate(kind, req.FileName, req.Size)
	if err != nil {
		return nil, validationBizError(err)
	}

	if kind == vo.MediaKindImage {
		return m.submitImage(ctx, req, ext)
	}
	return m.submitVideo(ctx, req, ext)
}

// submitImage 图片直接写入最终目录，不经过转码
func (m *mediaAppImpl) submitImage(ctx context.Context, req *cqe.SubmitMediaCqe, ext string) (*dto.MediaAssetDTO, error) {
	storedPath := path.Join(m.opts.Layout.ImageDir, uuid.NewString()+"."+ext)
	if err := m.writeUpload(ctx, storedPath, req); err != nil {
		return nil, err
	}

	asset, err := entity.NewStoredImageEntity(req.Title, storedPath)
	if err != nil {
		m.discardFile(ctx, storedPath)
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}
	if err := m.mediaRepo.CreateMedia(ctx, asset); err != nil {
		m.discardFile(ctx, storedPath)
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	m.notify(ctx, asset)
	logger.Info("图片上传完成", map[string]interface{}{
		"media_uuid":  asset.MediaUUID(),
		"output_path": storedPath,
	})
	return dto.NewMediaAssetDTO(asset, m.storage.PublicURL), nil
}

// submitVideo 视频先写入临时目录，记录处理中后入队
func (m *mediaAppImpl) submitVideo(ctx context.Context, req *cqe.SubmitMediaCqe, ext string) (*dto.MediaAssetDTO, error) {
	tempPath := path.Join(m.opts.Layout.TempDir, uuid.NewString()+"."+ext)
	if err := m.writeUpload(ctx, tempPath, req); err != nil {
		return nil, err
	}

	asset := entity.NewMediaAssetEntity(req.Title, vo.MediaKindVideo, tempPath)
	if err := m.mediaRepo.CreateMedia(ctx, asset); err != nil {
		m.discardFile(ctx, tempPath)
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	// 输出目录使用独立的随机名
	outputName := uuid.NewString()
	task := entity.NewTranscodeTask(
		asset.MediaUUID(),
		tempPath,
		path.Join(m.opts.Layout.VideoDir, outputName),
		path.Join(m.opts.Layout.ThumbnailDir, outputName+".jpg"),
		m.opts.MaxAttempts,
	)

	if err := m.taskQueue.Enqueue(ctx, task); err != nil {
		logger.Errorf("任务入队失败 media_uuid=%s task_uuid=%s error=%v", asset.MediaUUID(), task.TaskUUID, err)
		m.failUnqueued(ctx, asset, tempPath, err)
		return nil, errno.NewBizError(errno.ErrQueueFull, err)
	}

	logger.Info("视频已提交转码", map[string]interface{}{
		"media_uuid": asset.MediaUUID(),
		"task_uuid":  task.TaskUUID,
		"input_path": tempPath,
		"output_dir": task.OutputDir,
	})
	return dto.NewMediaAssetDTO(asset, m.storage.PublicURL), nil
}

// writeUpload 流式写入并再次限制大小，超限视为校验失败
func (m *mediaAppImpl) writeUpload(ctx context.Context, relPath string, req *cqe.SubmitMediaCqe) error {
	written, err := m.storage.Write(ctx, relPath, req.Content, m.opts.Policy.MaxSizeBytes)
	if err != nil {
		if errors.Is(err, gateway.ErrSizeLimitExceeded) {
			return validationBizError(vo.NewValidationError(vo.FieldSize,
				fmt.Sprintf("file exceeds limit %d", m.opts.Policy.MaxSizeBytes)))
		}
		logger.Errorf("写入上传文件失败 path=%s error=%v", relPath, err)
		return errno.NewBizError(errno.ErrUploadError, err)
	}
	if written == 0 {
		m.discardFile(ctx, relPath)
		return validationBizError(vo.NewValidationError(vo.FieldSize, "file is empty"))
	}
	return nil
}

// failUnqueued 入队失败时直接落失败状态，保证记录不会停留在处理中
func (m *mediaAppImpl) failUnqueued(ctx context.Context, asset *entity.MediaAssetEntity, tempPath string, cause error) {
	from := asset.Status()
	if err := asset.Fail(fmt.Sprintf("enqueue transcode task: %v", cause)); err != nil {
		logger.Errorf("标记失败状态出错 media_uuid=%s error=%v", asset.MediaUUID(), err)
		return
	}
	if err := m.mediaRepo.UpdateMediaStatus(ctx, asset, from); err != nil {
		logger.Errorf("保存失败状态出错 media_uuid=%s error=%v", asset.MediaUUID(), err)
	}
	m.discardFile(ctx, tempPath)
	m.notify(ctx, asset)
}

func (m *mediaAppImpl) discardFile(ctx context.Context, relPath string) {
	if err := m.storage.Delete(ctx, relPath); err != nil {
		logger.Warnf("删除文件失败 path=%s error=%v", relPath, err)
	}
}

func (m *mediaAppImpl) notify(ctx context.Context, asset *entity.MediaAssetEntity) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishStatus(ctx, service.NewMediaStatusEvent(asset, m.storage)); err != nil {
		logger.Warnf("发布媒体状态事件失败 media_uuid=%s error=%v", asset.MediaUUID(), err)
	}
}

func (m *mediaAppImpl) GetMedia(ctx context.Context, mediaUUID string) (*dto.MediaAssetDTO, error) {
	query := &cqe.GetMediaQuery{MediaUUID: mediaUUID}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	asset, err := m.mediaRepo.GetMedia(ctx, query.MediaUUID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if asset == nil {
		return nil, errno.ErrMediaNotFound
	}
	return dto.NewMediaAssetDTO(asset, m.storage.PublicURL), nil
}

// validationBizError 校验错误映射为对应的业务错误码
func validationBizError(err error) error {
	var verr *vo.ValidationError
	if !errors.As(err, &verr) {
		return errno.NewBizError(errno.ErrInvalidParam, err)
	}
	switch verr.Field {
	case vo.FieldKind:
		return errno.NewBizError(errno.ErrMediaKindIllegal, verr)
	case vo.FieldSize:
		return errno.NewBizError(errno.ErrFileSizeIllegal, verr)
	case vo.FieldName:
		return errno.NewBizError(errno.ErrFileNameIllegal, verr)
	case vo.FieldTitle:
		return errno.NewBizError(errno.ErrTitleRequired, verr)
	default:
		return errno.NewBizError(errno.ErrInvalidParam, verr)
	}
}
