package cqe

import (
	"io"
	"strings"

	"media-service/pkg/errno"
)

// SubmitMediaCqe 上传媒体请求
type SubmitMediaCqe struct {
	Title    string    // 标题
	Kind     string    // image | video
	FileName string    // 客户端文件名，只取扩展名
	Size     int64     // 客户端声明的大小
	Content  io.Reader // 文件内容
}

// Validate 校验必填字段，类型与大小由上传策略负责
func (req *SubmitMediaCqe) Validate() error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return errno.ErrTitleRequired
	}
	if strings.TrimSpace(req.Kind) == "" {
		return errno.ErrMediaKindIllegal
	}
	if req.Content == nil || strings.TrimSpace(req.FileName) == "" {
		return errno.ErrUploadIllegal
	}
	return nil
}

// GetMediaQuery 查询媒体
type GetMediaQuery struct {
	MediaUUID string `uri:"media_uuid"`
}

func (q *GetMediaQuery) Validate() error {
	q.MediaUUID = strings.TrimSpace(q.MediaUUID)
	if q.MediaUUID == "" {
		return errno.ErrMediaUUIDEmpty
	}
	return nil
}
