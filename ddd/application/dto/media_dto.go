package dto

import (
	"time"

	"media-service/ddd/domain/entity"
)

// MediaAssetDTO 媒体资源数据传输对象
type MediaAssetDTO struct {
	MediaUUID    string    `json:"media_uuid"`
	Title        string    `json:"title"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	OutputURL    string    `json:"output_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMediaAssetDTO 从实体创建DTO，publicURL 把存储相对路径转为访问地址
func NewMediaAssetDTO(asset *entity.MediaAssetEntity, publicURL func(string) string) *MediaAssetDTO {
	if asset == nil {
		return nil
	}
	d := &MediaAssetDTO{
		MediaUUID:    asset.MediaUUID(),
		Title:        asset.Title(),
		Kind:         asset.Kind().String(),
		Status:       asset.Status().String(),
		ErrorMessage: asset.ErrorMessage(),
		Attempts:     asset.Attempts(),
		CreatedAt:    asset.CreatedAt(),
		UpdatedAt:    asset.UpdatedAt(),
	}
	if out := asset.OutputPath(); out != nil {
		d.OutputURL = publicURL(*out)
	}
	if thumb := asset.ThumbnailPath(); thumb != nil {
		d.ThumbnailURL = publicURL(*thumb)
	}
	return d
}
