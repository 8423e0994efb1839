package convertor

import (
	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
	"media-service/ddd/infrastructure/database/po"
)

// MediaAssetConvertor 媒体资源转换器
type MediaAssetConvertor struct{}

// NewMediaAssetConvertor 创建媒体资源转换器
func NewMediaAssetConvertor() *MediaAssetConvertor {
	return &MediaAssetConvertor{}
}

// ToEntity 将PO转换为Entity
func (c *MediaAssetConvertor) ToEntity(p *po.MediaAsset) (*entity.MediaAssetEntity, error) {
	status, err := vo.NewMediaStatusFromString(p.Status)
	if err != nil {
		return nil, err
	}
	kind, err := vo.ParseMediaKind(p.Kind)
	if err != nil {
		return nil, err
	}

	return entity.RestoreMediaAssetEntity(
		p.Id,
		p.MediaUUID,
		p.Title,
		kind,
		p.SourcePath,
		p.OutputPath,
		p.ThumbnailPath,
		status,
		p.Attempts,
		p.ErrorMessage,
		p.CreatedAt,
		p.UpdatedAt,
	), nil
}

// ToPO 将Entity转换为PO
func (c *MediaAssetConvertor) ToPO(e *entity.MediaAssetEntity) *po.MediaAsset {
	return &po.MediaAsset{
		BaseModel: po.BaseModel{
			Id:        e.ID(),
			CreatedAt: e.CreatedAt(),
			UpdatedAt: e.UpdatedAt(),
		},
		MediaUUID:     e.MediaUUID(),
		Title:         e.Title(),
		Kind:          e.Kind().String(),
		SourcePath:    e.SourcePath(),
		OutputPath:    e.OutputPath(),
		ThumbnailPath: e.ThumbnailPath(),
		Status:        e.Status().String(),
		Attempts:      e.Attempts(),
		ErrorMessage:  e.ErrorMessage(),
	}
}

// StatusFields 状态变更需要写入的列
func (c *MediaAssetConvertor) StatusFields(e *entity.MediaAssetEntity) map[string]interface{} {
	return map[string]interface{}{
		"status":         e.Status().String(),
		"output_path":    e.OutputPath(),
		"thumbnail_path": e.ThumbnailPath(),
		"attempts":       e.Attempts(),
		"error_message":  e.ErrorMessage(),
	}
}
