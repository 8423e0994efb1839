package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"media-service/ddd/application/app"
	"media-service/ddd/application/cqe"
	"media-service/ddd/domain/vo"
	"media-service/pkg/assert"
	"media-service/pkg/config"
	"media-service/pkg/errno"
	"media-service/pkg/manager"
	"media-service/pkg/restapi"
)

// multipartOverhead 表单字段与边界的额外开销
const multipartOverhead int64 = 1 << 20

var (
	mediaControllerOnce      sync.Once
	singletonMediaController MediaController
)

type MediaControllerPlugin struct {
}

func (p *MediaControllerPlugin) Name() string {
	return "mediaControllerPlugin"
}

func (p *MediaControllerPlugin) MustCreateController() manager.Controller {
	assert.NotCircular()
	mediaControllerOnce.Do(func() {
		maxSize := vo.DefaultMaxUploadBytes
		if cfg := config.GetGlobalConfig(); cfg != nil {
			maxSize = cfg.Upload.MaxSizeBytes
		}
		singletonMediaController = NewMediaController(app.DefaultMediaApp(), maxSize)
	})
	assert.NotNil(singletonMediaController)
	return singletonMediaController
}

type MediaController interface {
	manager.Controller
	// SubmitMedia 上传图片或视频
	SubmitMedia(ctx *gin.Context)
	// GetMedia 轮询媒体状态
	GetMedia(ctx *gin.Context)
}

type mediaControllerImpl struct {
	mediaApp     app.MediaApp
	maxBodyBytes int64
}

// NewMediaController 创建媒体控制器，maxUploadBytes 用于限制请求体
func NewMediaController(mediaApp app.MediaApp, maxUploadBytes int64) MediaController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = vo.DefaultMaxUploadBytes
	}
	return &mediaControllerImpl{
		mediaApp:     mediaApp,
		maxBodyBytes: maxUploadBytes + multipartOverhead,
	}
}

func (m *mediaControllerImpl) RegisterRoutes(engine *gin.Engine) {
	v1 := engine.Group("/api/v1")
	{
		media := v1.Group("/media")
		media.POST("", m.SubmitMedia)         // 上传媒体
		media.GET("/:media_uuid", m.GetMedia) // 查询媒体状态
	}
}

func (m *mediaControllerImpl) SubmitMedia(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, m.maxBodyBytes)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			restapi.Failed(ctx, errno.NewBizError(errno.ErrFileSizeIllegal, err))
			return
		}
		restapi.Failed(ctx, errno.NewBizError(errno.ErrUploadIllegal, err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrUploadError, err))
		return
	}
	defer file.Close()

	req := &cqe.SubmitMediaCqe{
		Title:    ctx.PostForm("title"),
		Kind:     ctx.PostForm("kind"),
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	}
	resp, err := m.mediaApp.SubmitMedia(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}

	// 视频异步转码，返回 202
	if resp.Status == vo.MediaStatusProcessing.String() {
		restapi.Accepted(ctx, resp)
		return
	}
	restapi.Success(ctx, resp)
}

func (m *mediaControllerImpl) GetMedia(ctx *gin.Context) {
	var query cqe.GetMediaQuery
	if err := ctx.ShouldBindUri(&query); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	resp, err := m.mediaApp.GetMedia(ctx.Request.Context(), query.MediaUUID)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}
