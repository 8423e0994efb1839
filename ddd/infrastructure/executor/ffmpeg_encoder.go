package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-service/ddd/domain/gateway"
	"media-service/ddd/domain/vo"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

const stderrTailLines = 20

// FFmpegEncoder 基于本地 ffmpeg 进程的编码器
type FFmpegEncoder struct {
	binary      string
	videoCodec  string
	audioCodec  string
	videoPreset string
	threads     int
}

var _ gateway.Encoder = (*FFmpegEncoder)(nil)

func NewFFmpegEncoder(cfg config.FFmpegConfig) *FFmpegEncoder {
	e := &FFmpegEncoder{
		binary:      "ffmpeg",
		videoCodec:  "libx264",
		audioCodec:  "aac",
		videoPreset: "veryfast",
		threads:     cfg.Threads,
	}
	if strings.TrimSpace(cfg.BinaryPath) != "" {
		e.binary = cfg.BinaryPath
	}
	if strings.TrimSpace(cfg.VideoCodec) != "" {
		e.videoCodec = cfg.VideoCodec
	}
	if strings.TrimSpace(cfg.AudioCodec) != "" {
		e.audioCodec = cfg.AudioCodec
	}
	if strings.TrimSpace(cfg.VideoPreset) != "" {
		e.videoPreset = cfg.VideoPreset
	}
	if e.threads < 0 {
		e.threads = 0
	}
	return e
}

// ExtractFrame 抽取单帧作为封面
func (e *FFmpegEncoder) ExtractFrame(ctx context.Context, inputPath string, offset time.Duration, outputPath string) error {
	return e.run(ctx, "extract frame", e.frameArgs(inputPath, offset, outputPath))
}

// TranscodeToSegmentedStream 转为 HLS，分片与播放列表同目录
func (e *FFmpegEncoder) TranscodeToSegmentedStream(ctx context.Context, inputPath string, segmentSeconds int, playlistPath string) error {
	return e.run(ctx, "segment stream", e.segmentArgs(inputPath, segmentSeconds, playlistPath))
}

func (e *FFmpegEncoder) frameArgs(inputPath string, offset time.Duration, outputPath string) []string {
	return []string{
		"-hide_banner",
		"-y",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', -1, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		outputPath,
	}
}

func (e *FFmpegEncoder) segmentArgs(inputPath string, segmentSeconds int, playlistPath string) []string {
	base := strings.TrimSuffix(filepath.Base(playlistPath), filepath.Ext(playlistPath))
	segmentPattern := filepath.Join(filepath.Dir(playlistPath), base+"%d.ts")

	args := []string{
		"-hide_banner",
		"-y",
		"-probesize", "5M",
		"-analyzeduration", "5M",
		"-i", inputPath,
		"-c:v", e.videoCodec,
		"-preset", e.videoPreset,
		"-c:a", e.audioCodec,
	}
	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}
	return append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", segmentPattern,
		playlistPath,
	)
}

// run 执行 ffmpeg，失败时带上 stderr 尾部
func (e *FFmpegEncoder) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	logger.Debugf("ffmpeg command op=%s command=%s %s", op, e.binary, strings.Join(args, " "))

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return vo.NewJobError(vo.JobErrorEncodingFailed, op, fmt.Errorf("创建FFmpeg stderr管道失败: %w", err))
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return vo.NewJobError(vo.JobErrorEncoderUnavailable, op, err)
		}
		return vo.NewJobError(vo.JobErrorEncodingFailed, op, fmt.Errorf("启动FFmpeg命令失败: %w", err))
	}

	tailDone := make(chan []string, 1)
	go func() {
		tailDone <- captureTail(stderr, stderrTailLines)
	}()

	done := make(chan error, 1)
	go func() {
		tail := <-tailDone
		err := cmd.Wait()
		if err != nil && len(tail) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.Join(tail, " | "))
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
		return vo.NewJobError(vo.JobErrorEncodingFailed, op, ctx.Err())
	case err := <-done:
		if err != nil {
			logger.Errorf("ffmpeg failed op=%s err=%v", op, err)
			return vo.NewJobError(vo.JobErrorEncodingFailed, op, err)
		}
		return nil
	}
}

// captureTail 读取到 EOF，只保留最后 n 行
func captureTail(r io.Reader, n int) []string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	tail := make([]string, 0, n)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(tail) == n {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}
	return tail
}
