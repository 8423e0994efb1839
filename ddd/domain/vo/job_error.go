package vo

import (
	"errors"
	"fmt"
)

// JobErrorKind 转码作业失败分类
type JobErrorKind string

const (
	// 可重试
	JobErrorEncoderUnavailable JobErrorKind = "encoder_unavailable"
	JobErrorEncodingFailed     JobErrorKind = "encoding_failed"
	JobErrorStorageWrite       JobErrorKind = "storage_write"
	JobErrorPersistence        JobErrorKind = "persistence"

	// 不可重试
	JobErrorSourceMissing JobErrorKind = "source_missing"
	JobErrorAssetMissing  JobErrorKind = "asset_missing"
	JobErrorInvalidTask   JobErrorKind = "invalid_task"
)

// JobError 转码作业错误
type JobError struct {
	Kind JobErrorKind
	Op   string
	Err  error
}

func NewJobError(kind JobErrorKind, op string, err error) *JobError {
	return &JobError{Kind: kind, Op: op, Err: err}
}

func (e *JobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Is 同类错误视为相等，便于 errors.Is(err, &JobError{Kind: ...})
func (e *JobError) Is(target error) bool {
	t, ok := target.(*JobError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// IsRetryable 编码器、存储与数据库的失败都可以重试
func (e *JobError) IsRetryable() bool {
	switch e.Kind {
	case JobErrorEncoderUnavailable, JobErrorEncodingFailed, JobErrorStorageWrite, JobErrorPersistence:
		return true
	default:
		return false
	}
}

// 哨兵错误，用于 errors.Is 判断类别
var (
	ErrEncoderUnavailable = &JobError{Kind: JobErrorEncoderUnavailable}
	ErrEncodingFailed     = &JobError{Kind: JobErrorEncodingFailed}
	ErrStorageWrite       = &JobError{Kind: JobErrorStorageWrite}
	ErrSourceMissing      = &JobError{Kind: JobErrorSourceMissing}
	ErrAssetMissing       = &JobError{Kind: JobErrorAssetMissing}
	ErrInvalidTask        = &JobError{Kind: JobErrorInvalidTask}
)

// KindOf 提取错误分类，非 JobError 返回空
func KindOf(err error) JobErrorKind {
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return ""
}
