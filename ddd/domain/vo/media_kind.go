package vo

import "strings"

// MediaKind 上传媒体类型
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// ParseMediaKind 解析媒体类型，大小写不敏感
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case MediaKindImage:
		return MediaKindImage, nil
	case MediaKindVideo:
		return MediaKindVideo, nil
	default:
		return "", NewValidationError(FieldKind, "kind must be image or video, got "+strings.TrimSpace(s))
	}
}

func (k MediaKind) String() string { return string(k) }

func (k MediaKind) IsValid() bool { return k == MediaKindImage || k == MediaKindVideo }
