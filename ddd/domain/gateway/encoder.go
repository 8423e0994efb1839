package gateway

import (
	"context"
	"time"
)

// Encoder 外部编码器
type Encoder interface {
	// ExtractFrame 在 offset 处抽取一帧写入 outputPath（封面）
	ExtractFrame(ctx context.Context, inputPath string, offset time.Duration, outputPath string) error

	// TranscodeToSegmentedStream 切片为 HLS，playlistPath 同目录写入分片
	TranscodeToSegmentedStream(ctx context.Context, inputPath string, segmentSeconds int, playlistPath string) error
}
