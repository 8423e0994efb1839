package vo

import "fmt"

// MediaStatus 媒体资源处理状态
type MediaStatus string

const (
	// MediaStatusProcessing 处理中（初始状态，重试期间保持不变）
	MediaStatusProcessing MediaStatus = "processing"
	// MediaStatusSuccess 处理成功
	MediaStatusSuccess MediaStatus = "success"
	// MediaStatusFailed 重试耗尽后失败
	MediaStatusFailed MediaStatus = "failed"
)

// NewMediaStatusFromString 解析状态字符串
func NewMediaStatusFromString(s string) (MediaStatus, error) {
	status := MediaStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid media status %q", s)
	}
	return status, nil
}

// IsValid 检查状态是否有效
func (s MediaStatus) IsValid() bool {
	switch s {
	case MediaStatusProcessing, MediaStatusSuccess, MediaStatusFailed:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s MediaStatus) String() string {
	return string(s)
}

// IsFinalStatus 检查是否为最终状态
func (s MediaStatus) IsFinalStatus() bool {
	return s == MediaStatusSuccess || s == MediaStatusFailed
}

// CanTransitionTo 检查是否可以转换到目标状态；最终状态不可再变化
func (s MediaStatus) CanTransitionTo(target MediaStatus) bool {
	switch s {
	case MediaStatusProcessing:
		return target == MediaStatusSuccess || target == MediaStatusFailed
	default:
		return false
	}
}
