package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"media-service/ddd/domain/gateway"
	"media-service/pkg/logger"
)

// MinioStorage 将转码产物同步到 MinIO
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

var _ gateway.ObjectPublisher = (*MinioStorage)(nil)

// NewMinioStorage 创建MinIO发布器
func NewMinioStorage(client *minio.Client, bucketName string) *MinioStorage {
	return &MinioStorage{client: client, bucketName: bucketName}
}

// UploadObjects 批量上传对象，遇错即停
func (s *MinioStorage) UploadObjects(ctx context.Context, objects []gateway.UploadObject) error {
	if len(objects) == 0 {
		return nil
	}
	if s.client == nil {
		return fmt.Errorf("minio client not initialized")
	}

	for _, obj := range objects {
		if err := s.uploadOne(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinioStorage) uploadOne(ctx context.Context, obj gateway.UploadObject) error {
	file, err := os.Open(obj.LocalPath)
	if err != nil {
		logger.Error("Failed to open local file for upload", map[string]interface{}{
			"local_path": obj.LocalPath,
			"error":      err.Error(),
		})
		return fmt.Errorf("open local file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("get file info failed: %w", err)
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = getContentTypeFromExtension(obj.ObjectKey)
	}

	objectKey := strings.TrimLeft(filepath.ToSlash(obj.ObjectKey), "/")
	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, file, fileInfo.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("Failed to upload object to MinIO", map[string]interface{}{
			"local_path": obj.LocalPath,
			"object_key": objectKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("upload object to minio failed: %w", err)
	}

	logger.Debug("Uploaded object", map[string]interface{}{
		"object_key": objectKey,
		"size":       fileInfo.Size(),
	})
	return nil
}

// getContentTypeFromExtension 根据文件扩展名获取内容类型
func getContentTypeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
