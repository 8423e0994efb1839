package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"media-service/ddd/infrastructure/database/po"
	"media-service/pkg/logger"
)

// MediaAssetDAO 媒体资源数据访问对象
type MediaAssetDAO struct {
	db *gorm.DB
}

// NewMediaAssetDAO 创建媒体资源DAO实例
func NewMediaAssetDAO(db *gorm.DB) *MediaAssetDAO {
	return &MediaAssetDAO{db: db}
}

// Create 创建媒体记录
func (d *MediaAssetDAO) Create(ctx context.Context, asset *po.MediaAsset) error {
	if err := d.db.WithContext(ctx).Create(asset).Error; err != nil {
		logger.Errorf("Error creating media asset media_uuid=%s err=%v", asset.MediaUUID, err)
		return err
	}
	return nil
}

// FindByMediaUUID 根据媒体UUID查询，不存在返回 nil, nil
func (d *MediaAssetDAO) FindByMediaUUID(ctx context.Context, mediaUUID string) (*po.MediaAsset, error) {
	var asset po.MediaAsset
	if err := d.db.WithContext(ctx).
		Where("media_uuid = ?", mediaUUID).
		First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// UpdateIfStatus 条件更新：仅当当前状态为 fromStatus 时生效，返回影响行数
func (d *MediaAssetDAO) UpdateIfStatus(ctx context.Context, mediaUUID, fromStatus string, fields map[string]interface{}) (int64, error) {
	fields["updated_at"] = time.Now()
	result := d.db.WithContext(ctx).
		Model(&po.MediaAsset{}).
		Where("media_uuid = ? AND status = ?", mediaUUID, fromStatus).
		Updates(fields)
	if result.Error != nil {
		logger.Errorf("Error updating media asset media_uuid=%s err=%v", mediaUUID, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateAttempts 只增不减地记录执行次数
func (d *MediaAssetDAO) UpdateAttempts(ctx context.Context, mediaUUID, status string, attempts int) error {
	return d.db.WithContext(ctx).
		Model(&po.MediaAsset{}).
		Where("media_uuid = ? AND status = ? AND attempts < ?", mediaUUID, status, attempts).
		Updates(map[string]interface{}{"attempts": attempts, "updated_at": time.Now()}).Error
}

// FindStaleByStatus 按主键分页查询指定状态、类型且 updated_at 早于 before 的记录
func (d *MediaAssetDAO) FindStaleByStatus(ctx context.Context, status, kind string, before time.Time, afterID uint64, limit int) ([]*po.MediaAsset, error) {
	var assets []*po.MediaAsset
	err := d.db.WithContext(ctx).
		Where("status = ? AND kind = ? AND updated_at < ? AND id > ?", status, kind, before, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		logger.Errorf("Error listing media assets status=%s err=%v", status, err)
		return nil, err
	}
	return assets, nil
}
