package entity

import (
	"time"

	"github.com/google/uuid"
)

// TranscodeTask 转码队列负载，只存在于队列中，不落库
type TranscodeTask struct {
	TaskUUID       string    `json:"task_uuid"`
	MediaUUID      string    `json:"media_uuid"`
	InputPath      string    `json:"input_path"`
	OutputDir      string    `json:"output_dir"`
	ThumbnailPath  string    `json:"thumbnail_path"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"max_attempts"`
	LastError      string    `json:"last_error,omitempty"`
	PendingFailure string    `json:"pending_failure,omitempty"` // 已判定最终失败但未落库，出队后直接补记
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// NewTranscodeTask 创建首次入队的任务
func NewTranscodeTask(mediaUUID, inputPath, outputDir, thumbnailPath string, maxAttempts int) *TranscodeTask {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &TranscodeTask{
		TaskUUID:      uuid.NewString(),
		MediaUUID:     mediaUUID,
		InputPath:     inputPath,
		OutputDir:     outputDir,
		ThumbnailPath: thumbnailPath,
		MaxAttempts:   maxAttempts,
		EnqueuedAt:    time.Now(),
	}
}

// BeginAttempt 开始新一次执行，返回当前次数（从1开始）
func (t *TranscodeTask) BeginAttempt() int {
	t.Attempt++
	return t.Attempt
}

// AttemptsExhausted 已达到最大次数
func (t *TranscodeTask) AttemptsExhausted() bool {
	return t.Attempt >= t.MaxAttempts
}

// MarkFailurePending 最终失败落库不成功，带着原因重新入队
func (t *TranscodeTask) MarkFailurePending(cause error) {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	t.PendingFailure = reason
	t.LastError = reason
	t.EnqueuedAt = time.Now()
}

// HasPendingFailure 是否只需补记失败
func (t *TranscodeTask) HasPendingFailure() bool {
	return t.PendingFailure != ""
}

// MarkRetry 记录失败原因并重置入队时间
func (t *TranscodeTask) MarkRetry(err error) {
	if err != nil {
		t.LastError = err.Error()
	}
	t.EnqueuedAt = time.Now()
}
