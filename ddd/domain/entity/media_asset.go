package entity

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"media-service/ddd/domain/vo"
)

// MaxErrorMessageLength 失败原因的最大字节数，与 error_message 列宽一致
const MaxErrorMessageLength = 1024

// MediaAssetEntity 媒体资源实体
type MediaAssetEntity struct {
	id            uint64         // 数据库主键ID
	mediaUUID     string         // 资源ID，创建后不可变
	title         string         // 展示名称
	kind          vo.MediaKind   // image|video
	sourcePath    string         // 原始上传文件位置
	outputPath    *string        // 最终产物，仅成功时非空
	thumbnailPath *string        // 封面，仅视频成功时非空
	status        vo.MediaStatus // 处理状态
	attempts      int            // 已执行的转码次数
	errorMessage  string         // 最终失败原因
	createdAt     time.Time
	updatedAt     time.Time
}

// NewMediaAssetEntity 创建处理中的媒体资源
func NewMediaAssetEntity(title string, kind vo.MediaKind, sourcePath string) *MediaAssetEntity {
	now := time.Now()
	return &MediaAssetEntity{
		mediaUUID:  uuid.NewString(),
		title:      title,
		kind:       kind,
		sourcePath: sourcePath,
		status:     vo.MediaStatusProcessing,
		createdAt:  now,
		updatedAt:  now,
	}
}

// NewStoredImageEntity 图片同步落盘后直接成功
func NewStoredImageEntity(title, storedPath string) (*MediaAssetEntity, error) {
	asset := NewMediaAssetEntity(title, vo.MediaKindImage, storedPath)
	if err := asset.Succeed(storedPath, ""); err != nil {
		return nil, err
	}
	return asset, nil
}

// RestoreMediaAssetEntity 从持久化数据重建实体
func RestoreMediaAssetEntity(
	id uint64,
	mediaUUID, title string,
	kind vo.MediaKind,
	sourcePath string,
	outputPath, thumbnailPath *string,
	status vo.MediaStatus,
	attempts int,
	errorMessage string,
	createdAt, updatedAt time.Time,
) *MediaAssetEntity {
	return &MediaAssetEntity{
		id:            id,
		mediaUUID:     mediaUUID,
		title:         title,
		kind:          kind,
		sourcePath:    sourcePath,
		outputPath:    outputPath,
		thumbnailPath: thumbnailPath,
		status:        status,
		attempts:      attempts,
		errorMessage:  errorMessage,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Getters
func (a *MediaAssetEntity) ID() uint64             { return a.id }
func (a *MediaAssetEntity) MediaUUID() string      { return a.mediaUUID }
func (a *MediaAssetEntity) Title() string          { return a.title }
func (a *MediaAssetEntity) Kind() vo.MediaKind     { return a.kind }
func (a *MediaAssetEntity) SourcePath() string     { return a.sourcePath }
func (a *MediaAssetEntity) OutputPath() *string    { return a.outputPath }
func (a *MediaAssetEntity) ThumbnailPath() *string { return a.thumbnailPath }
func (a *MediaAssetEntity) Status() vo.MediaStatus { return a.status }
func (a *MediaAssetEntity) Attempts() int          { return a.attempts }
func (a *MediaAssetEntity) ErrorMessage() string   { return a.errorMessage }
func (a *MediaAssetEntity) CreatedAt() time.Time   { return a.createdAt }
func (a *MediaAssetEntity) UpdatedAt() time.Time   { return a.updatedAt }
func (a *MediaAssetEntity) IsProcessing() bool     { return a.status == vo.MediaStatusProcessing }
func (a *MediaAssetEntity) IsSettled() bool        { return a.status.IsFinalStatus() }

// SetID 持久化后回填主键
func (a *MediaAssetEntity) SetID(id uint64) { a.id = id }

// RecordAttempt 记录已执行次数，只允许在处理中递增
func (a *MediaAssetEntity) RecordAttempt(attempt int) error {
	if !a.IsProcessing() {
		return NewDomainError("cannot record attempt in status: " + a.status.String())
	}
	if attempt > a.attempts {
		a.attempts = attempt
		a.updatedAt = time.Now()
	}
	return nil
}

// Succeed 成功：写入产物路径；视频必须携带封面，图片不允许封面
func (a *MediaAssetEntity) Succeed(outputPath, thumbnailPath string) error {
	if outputPath == "" {
		return NewDomainError("output path is required on success")
	}
	switch a.kind {
	case vo.MediaKindVideo:
		if thumbnailPath == "" {
			return NewDomainError("thumbnail path is required for video success")
		}
	default:
		if thumbnailPath != "" {
			return NewDomainError("thumbnail path is only allowed for video assets")
		}
	}
	return a.transition(vo.MediaStatusSuccess, func() {
		out := outputPath
		a.outputPath = &out
		if thumbnailPath != "" {
			thumb := thumbnailPath
			a.thumbnailPath = &thumb
		}
		a.errorMessage = ""
	})
}

// Fail 失败：记录原因（超长截断），产物与封面保持为空
func (a *MediaAssetEntity) Fail(reason string) error {
	return a.transition(vo.MediaStatusFailed, func() {
		a.outputPath = nil
		a.thumbnailPath = nil
		a.errorMessage = truncateReason(reason, MaxErrorMessageLength)
	})
}

// truncateReason 按字节截断，不切断多字节字符
func truncateReason(reason string, limit int) string {
	if len(reason) <= limit {
		return reason
	}
	const suffix = "...(truncated)"
	cut := limit - len(suffix)
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut] + suffix
}

// transition 唯一的状态变更入口
func (a *MediaAssetEntity) transition(target vo.MediaStatus, apply func()) error {
	if !a.status.CanTransitionTo(target) {
		return NewDomainError("cannot transition media " + a.mediaUUID + " from " + a.status.String() + " to " + target.String())
	}
	apply()
	a.status = target
	a.updatedAt = time.Now()
	return nil
}
