package gateway

import (
	"context"
	"time"
)

// MediaStatusEvent 媒体最终状态通知
type MediaStatusEvent struct {
	MediaUUID    string    `json:"media_uuid"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	OutputURL    string    `json:"output_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempts     int       `json:"attempts"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MediaEventPublisher 状态事件发布
type MediaEventPublisher interface {
	PublishStatus(ctx context.Context, event *MediaStatusEvent) error
}
