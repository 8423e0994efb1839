package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"media-service/ddd/domain/gateway"
	"media-service/pkg/logger"
)

// PublicPathPrefix 本地文件对外暴露的路由前缀
const PublicPathPrefix = "/storage"

// LocalStorage 本地文件系统存储，路径均相对于 rootDir
type LocalStorage struct {
	rootDir    string
	publicBase string
}

var _ gateway.StorageGateway = (*LocalStorage)(nil)

// NewLocalStorage 创建本地存储，rootDir 不存在时自动创建
func NewLocalStorage(rootDir, publicBase string) (*LocalStorage, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{rootDir: abs, publicBase: normalizeBase(publicBase)}, nil
}

// RootDir 存储根目录
func (s *LocalStorage) RootDir() string { return s.rootDir }

// resolve 相对路径转绝对路径，拒绝跳出根目录
func (s *LocalStorage) resolve(relPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(relPath))
	if clean == "/" {
		return "", fmt.Errorf("invalid storage path %q", relPath)
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Write 写入文件；超出上限时删除半成品
func (s *LocalStorage) Write(ctx context.Context, relPath string, r io.Reader, limit int64) (int64, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(full)
		return n, fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(full)
		return n, fmt.Errorf("close file: %w", closeErr)
	case limit > 0 && n > limit:
		_ = os.Remove(full)
		return n, gateway.ErrSizeLimitExceeded
	}
	return n, nil
}

// Delete 删除文件，不存在视为成功
func (s *LocalStorage) Delete(_ context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists 判断普通文件是否存在
func (s *LocalStorage) Exists(_ context.Context, relPath string) (bool, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// EnsureDir 确保目录存在
func (s *LocalStorage) EnsureDir(_ context.Context, relDir string) error {
	full, err := s.resolve(relDir)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

// List 列出目录下的文件
func (s *LocalStorage) List(_ context.Context, relDir string) ([]string, error) {
	full, err := s.resolve(relDir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, path.Join(filepath.ToSlash(relDir), e.Name()))
		}
	}
	return files, nil
}

// LocalPath 转为本地绝对路径，非法路径返回根目录下的同名文件
func (s *LocalStorage) LocalPath(relPath string) string {
	full, err := s.resolve(relPath)
	if err != nil {
		logger.Warnf("invalid storage path path=%s err=%v", relPath, err)
		return filepath.Join(s.rootDir, filepath.Base(relPath))
	}
	return full
}

// PublicURL 生成对外访问地址
func (s *LocalStorage) PublicURL(relPath string) string {
	if strings.TrimSpace(relPath) == "" {
		return ""
	}
	p := PublicPathPrefix + "/" + strings.TrimLeft(filepath.ToSlash(relPath), "/")
	if s.publicBase == "" {
		return p
	}
	return s.publicBase + p
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

// ctxReader 读取时检查取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
