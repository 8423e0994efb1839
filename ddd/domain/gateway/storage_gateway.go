package gateway

import (
	"context"
	"errors"
	"io"
)

// ErrSizeLimitExceeded 写入内容超过上限
var ErrSizeLimitExceeded = errors.New("content exceeds size limit")

// StorageGateway 存储网关，所有路径均为相对存储根目录的路径
type StorageGateway interface {
	// Write 写入文件，返回实际写入的字节数；超过 limit 时删除半成品并返回 ErrSizeLimitExceeded；limit<=0 不限制
	Write(ctx context.Context, relPath string, r io.Reader, limit int64) (int64, error)

	// Delete 删除文件，不存在视为成功
	Delete(ctx context.Context, relPath string) error

	// Exists 判断文件是否存在
	Exists(ctx context.Context, relPath string) (bool, error)

	// EnsureDir 确保目录存在
	EnsureDir(ctx context.Context, relDir string) error

	// List 列出目录下的文件（不递归），返回相对路径
	List(ctx context.Context, relDir string) ([]string, error)

	// LocalPath 转为编码器可用的本地绝对路径
	LocalPath(relPath string) string

	// PublicURL 生成对外访问地址
	PublicURL(relPath string) string
}
