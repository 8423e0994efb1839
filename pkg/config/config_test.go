package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(20*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, []string{"jpg", "jpeg", "png"}, cfg.Upload.ImageExtensions)
	assert.Equal(t, []string{"mp4", "mov", "mkv", "flv", "avi", "wmv"}, cfg.Upload.VideoExtensions)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Retry.Backoff)
	assert.Equal(t, 10, cfg.Transcode.SegmentSeconds)
	assert.Equal(t, "playlist.m3u8", cfg.Transcode.PlaylistName)
	assert.Equal(t, 100*time.Millisecond, cfg.Transcode.ThumbnailOffset)
	assert.Equal(t, time.Hour, cfg.Transcode.FFmpeg.Timeout)
	assert.Equal(t, QueueDriverMemory, cfg.Worker.QueueDriver)
	assert.Equal(t, 24*time.Hour, cfg.Worker.RecoverStaleAfter)
	assert.Equal(t, "media/images", cfg.Storage.ImageDir)
	assert.Equal(t, "tmp/uploads", cfg.Storage.TempDir)
}

func TestLoadHonoursFileValues(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
retry:
  max_attempts: 5
  backoff: 2s
worker:
  queue_driver: redis
  recover_stale_after: 2h
minio:
  access_key: ak
  secret_key: sk
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/media.db", cfg.Database.SQLitePath)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Backoff)
	assert.Equal(t, QueueDriverRedis, cfg.Worker.QueueDriver)
	assert.Equal(t, 2*time.Hour, cfg.Worker.RecoverStaleAfter)
	assert.Equal(t, "ak", cfg.Minio.AccessKeyID)
	assert.Equal(t, "sk", cfg.Minio.SecretAccessKey)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "retry:\n  max_attempts: 4\n")
	t.Setenv("MEDIA_SVC_RETRY_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGlobalConfig(t *testing.T) {
	prev := GetGlobalConfig()
	t.Cleanup(func() { SetGlobalConfig(prev) })

	cfg := Default()
	SetGlobalConfig(cfg)
	assert.Same(t, cfg, GetGlobalConfig())
}
