package gateway

import "context"

// UploadObject 待发布的对象
type UploadObject struct {
	LocalPath   string
	ObjectKey   string
	ContentType string
}

// ObjectPublisher 将产物同步到对象存储
type ObjectPublisher interface {
	UploadObjects(ctx context.Context, objects []UploadObject) error
}
