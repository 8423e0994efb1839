package vo

import "time"

// RetryPolicy 固定退避的有限重试
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy 最多 3 次，间隔 60 秒
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 60 * time.Second}
}

// NewRetryPolicy 非法参数回退为默认值
func NewRetryPolicy(maxAttempts int, backoff time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if backoff > 0 {
		p.Backoff = backoff
	}
	return p
}

// ShouldRetry 已执行 attempt 次后是否还能再试
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}
