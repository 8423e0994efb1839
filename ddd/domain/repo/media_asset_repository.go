package repo

import (
	"context"
	"errors"
	"time"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
)

// ErrStatusConflict 条件更新未命中，行状态已被其他写入方改变
var ErrStatusConflict = errors.New("media status changed by another writer")

// MediaAssetRepository 媒体资源仓储接口
type MediaAssetRepository interface {
	// CreateMedia 创建资源记录并回填主键
	CreateMedia(ctx context.Context, asset *entity.MediaAssetEntity) error

	// GetMedia 根据 mediaUUID 查询，不存在返回 nil, nil
	GetMedia(ctx context.Context, mediaUUID string) (*entity.MediaAssetEntity, error)

	// UpdateMediaStatus 仅当库中状态仍为 from 时写入 asset 的当前状态，否则返回 ErrStatusConflict
	UpdateMediaStatus(ctx context.Context, asset *entity.MediaAssetEntity, from vo.MediaStatus) error

	// TouchAttempt 记录已执行次数，仅处理中的记录生效
	TouchAttempt(ctx context.Context, mediaUUID string, attempts int) error

	// ListProcessing 按主键升序列出 updated_at 早于 before 的处理中视频，afterID 为上一页最后的主键
	ListProcessing(ctx context.Context, before time.Time, afterID uint64, limit int) ([]*entity.MediaAssetEntity, error)
}
