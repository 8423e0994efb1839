package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"media-service/pkg/errno"
	"media-service/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      errno.OK.Code,
		Message:   errno.OK.Message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// Accepted 异步受理响应
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:      errno.OK.Code,
		Message:   errno.OK.Message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// Failed 失败响应，错误码映射为HTTP状态
func Failed(c *gin.Context, err error) {
	code := errno.From(err)
	status := errno.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
	}
	message := code.Message
	if status < http.StatusInternalServerError && err.Error() != code.Message {
		message = err.Error()
	}
	c.AbortWithStatusJSON(status, Response{
		Code:      code.Code,
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}
