package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/repo"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/convertor"
	"media-service/ddd/infrastructure/database/dao"
)

// mediaAssetRepositoryImpl 媒体资源仓储实现
type mediaAssetRepositoryImpl struct {
	assetDao  *dao.MediaAssetDAO
	convertor *convertor.MediaAssetConvertor
}

// NewMediaAssetRepository 创建媒体资源仓储实现
func NewMediaAssetRepository(db *gorm.DB) repo.MediaAssetRepository {
	return &mediaAssetRepositoryImpl{
		assetDao:  dao.NewMediaAssetDAO(db),
		convertor: convertor.NewMediaAssetConvertor(),
	}
}

// CreateMedia 创建资源记录
func (r *mediaAssetRepositoryImpl) CreateMedia(ctx context.Context, asset *entity.MediaAssetEntity) error {
	p := r.convertor.ToPO(asset)
	if err := r.assetDao.Create(ctx, p); err != nil {
		return fmt.Errorf("create media %s: %w", asset.MediaUUID(), err)
	}
	asset.SetID(p.Id)
	return nil
}

// GetMedia 根据mediaUUID查询
func (r *mediaAssetRepositoryImpl) GetMedia(ctx context.Context, mediaUUID string) (*entity.MediaAssetEntity, error) {
	p, err := r.assetDao.FindByMediaUUID(ctx, mediaUUID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return r.convertor.ToEntity(p)
}

// UpdateMediaStatus 条件更新状态
func (r *mediaAssetRepositoryImpl) UpdateMediaStatus(ctx context.Context, asset *entity.MediaAssetEntity, from vo.MediaStatus) error {
	affected, err := r.assetDao.UpdateIfStatus(ctx, asset.MediaUUID(), from.String(), r.convertor.StatusFields(asset))
	if err != nil {
		return err
	}
	if affected == 0 {
		return repo.ErrStatusConflict
	}
	return nil
}

// TouchAttempt 记录执行次数
func (r *mediaAssetRepositoryImpl) TouchAttempt(ctx context.Context, mediaUUID string, attempts int) error {
	return r.assetDao.UpdateAttempts(ctx, mediaUUID, vo.MediaStatusProcessing.String(), attempts)
}

// ListProcessing 列出长时间未更新的处理中视频
func (r *mediaAssetRepositoryImpl) ListProcessing(ctx context.Context, before time.Time, afterID uint64, limit int) ([]*entity.MediaAssetEntity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.assetDao.FindStaleByStatus(ctx, vo.MediaStatusProcessing.String(), vo.MediaKindVideo.String(), before, afterID, limit)
	if err != nil {
		return nil, err
	}
	assets := make([]*entity.MediaAssetEntity, 0, len(rows))
	for _, p := range rows {
		asset, err := r.convertor.ToEntity(p)
		if err != nil {
			return nil, fmt.Errorf("restore media %s: %w", p.MediaUUID, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}
