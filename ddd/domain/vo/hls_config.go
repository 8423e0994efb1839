package vo

import (
	"fmt"
	"path"
	"time"
)

// HLSConfig 分段流输出参数
type HLSConfig struct {
	SegmentDuration int           `json:"segment_duration"` // 切片时长(秒)
	ListSize        int           `json:"list_size"`        // 播放列表大小(0表示无限制)
	Format          string        `json:"format"`           // HLS格式(mpegts/fmp4)
	PlaylistName    string        `json:"playlist_name"`    // 播放列表文件名
	ThumbnailOffset time.Duration `json:"thumbnail_offset"` // 封面抽帧时间点
}

// DefaultHLSConfig 10秒切片、无限播放列表、0.1秒处抽帧
func DefaultHLSConfig() HLSConfig {
	return HLSConfig{
		SegmentDuration: 10,
		ListSize:        0,
		Format:          "mpegts",
		PlaylistName:    "playlist.m3u8",
		ThumbnailOffset: 100 * time.Millisecond,
	}
}

// NewHLSConfig 按配置覆盖默认值
func NewHLSConfig(segmentSeconds int, playlistName string, thumbnailOffset time.Duration) (HLSConfig, error) {
	cfg := DefaultHLSConfig()
	if segmentSeconds > 0 {
		cfg.SegmentDuration = segmentSeconds
	}
	if playlistName != "" {
		cfg.PlaylistName = playlistName
	}
	if thumbnailOffset > 0 {
		cfg.ThumbnailOffset = thumbnailOffset
	}
	return cfg, cfg.Validate()
}

// Validate 验证HLS配置
func (hc HLSConfig) Validate() error {
	if hc.SegmentDuration <= 0 || hc.SegmentDuration > 60 {
		return fmt.Errorf("切片时长必须在1-60秒之间")
	}
	if hc.ListSize < 0 {
		return fmt.Errorf("播放列表大小不能为负数")
	}
	if hc.Format != "mpegts" && hc.Format != "fmp4" {
		return fmt.Errorf("HLS格式必须是mpegts或fmp4")
	}
	if path.Ext(hc.PlaylistName) != ".m3u8" {
		return fmt.Errorf("播放列表文件名必须以.m3u8结尾: %s", hc.PlaylistName)
	}
	if hc.ThumbnailOffset < 0 {
		return fmt.Errorf("抽帧时间点不能为负数")
	}
	return nil
}

// PlaylistPath 输出目录下的播放列表路径
func (hc HLSConfig) PlaylistPath(outputDir string) string {
	return path.Join(outputDir, hc.PlaylistName)
}

// ThumbnailSeconds 抽帧时间点(秒)
func (hc HLSConfig) ThumbnailSeconds() float64 {
	return hc.ThumbnailOffset.Seconds()
}
