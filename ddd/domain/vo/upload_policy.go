package vo

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes 上传大小上限 20MB
const DefaultMaxUploadBytes int64 = 20 * 1024 * 1024

// 校验失败涉及的字段
const (
	FieldKind  = "kind"
	FieldSize  = "size"
	FieldName  = "filename"
	FieldTitle = "title"
)

// ValidationError 上传输入非法，同步返回给调用方，不重试
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// UploadPolicy 上传大小与扩展名白名单
type UploadPolicy struct {
	MaxSizeBytes    int64
	imageExtensions map[string]struct{}
	videoExtensions map[string]struct{}
}

// DefaultUploadPolicy 图片 jpg/jpeg/png，视频 mp4/mov/mkv/flv/avi/wmv，上限 20MB
func DefaultUploadPolicy() UploadPolicy {
	return NewUploadPolicy(DefaultMaxUploadBytes,
		[]string{"jpg", "jpeg", "png"},
		[]string{"mp4", "mov", "mkv", "flv", "avi", "wmv"})
}

func NewUploadPolicy(maxSize int64, imageExts, videoExts []string) UploadPolicy {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadBytes
	}
	return UploadPolicy{
		MaxSizeBytes:    maxSize,
		imageExtensions: toExtSet(imageExts),
		videoExtensions: toExtSet(videoExts),
	}
}

func toExtSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[normalizeExt(e)] = struct{}{}
	}
	return set
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Extension 返回客户端文件名中的扩展名（小写、无点）
func Extension(filename string) string {
	return normalizeExt(filepath.Ext(filename))
}

// Validate 校验类型、大小与扩展名，返回规范化后的扩展名
func (p UploadPolicy) Validate(kind MediaKind, filename string, size int64) (string, error) {
	if !kind.IsValid() {
		return "", NewValidationError(FieldKind, "kind must be image or video")
	}
	if size <= 0 {
		return "", NewValidationError(FieldSize, "file is empty")
	}
	if size > p.MaxSizeBytes {
		return "", NewValidationError(FieldSize, fmt.Sprintf("file size %d exceeds limit %d", size, p.MaxSizeBytes))
	}
	ext := Extension(filename)
	if ext == "" {
		return "", NewValidationError(FieldName, "file has no extension")
	}
	allowed := p.videoExtensions
	if kind == MediaKindImage {
		allowed = p.imageExtensions
	}
	if _, ok := allowed[ext]; !ok {
		return "", NewValidationError(FieldName, fmt.Sprintf("extension %q not allowed for %s", ext, kind))
	}
	return ext, nil
}
