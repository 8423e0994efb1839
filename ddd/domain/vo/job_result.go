package vo

import "errors"

// JobOutcome 单次执行的结果类别，由调度方据此决定重试或终止
type JobOutcome int

const (
	// JobSucceeded 资源已成功落库
	JobSucceeded JobOutcome = iota
	// JobRetryable 本次失败，可在退避后重试
	JobRetryable
	// JobTerminal 不可重试的失败
	JobTerminal
	// JobDiscarded 资源已处于最终状态，重复投递直接丢弃
	JobDiscarded
)

func (o JobOutcome) String() string {
	switch o {
	case JobSucceeded:
		return "succeeded"
	case JobRetryable:
		return "retryable"
	case JobTerminal:
		return "terminal"
	case JobDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// JobResult 转码作业返回值
type JobResult struct {
	Outcome JobOutcome
	Err     error
}

func Succeeded() JobResult          { return JobResult{Outcome: JobSucceeded} }
func Discarded() JobResult          { return JobResult{Outcome: JobDiscarded} }
func Retryable(err error) JobResult { return JobResult{Outcome: JobRetryable, Err: err} }
func Terminal(err error) JobResult  { return JobResult{Outcome: JobTerminal, Err: err} }

// Failed 按错误分类生成结果
func Failed(err error) JobResult {
	var je *JobError
	if errors.As(err, &je) && !je.IsRetryable() {
		return Terminal(err)
	}
	return Retryable(err)
}

func (r JobResult) IsSuccess() bool { return r.Outcome == JobSucceeded }
