package errno

import (
	"errors"
	"net/http"
)

// BizError 业务错误，携带错误码与底层原因
type BizError struct {
	Errno *Errno
	Cause error
}

// NewBizError 包装底层错误
func NewBizError(code *Errno, cause error) *BizError {
	if code == nil {
		code = ErrUnknown
	}
	return &BizError{Errno: code, Cause: cause}
}

func (e *BizError) Error() string {
	if e.Cause == nil {
		return e.Errno.Message
	}
	return e.Errno.Message + ": " + e.Cause.Error()
}

func (e *BizError) Unwrap() error { return e.Cause }

// Is 允许 errors.Is(err, errno.ErrXxx) 命中包装后的错误码
func (e *BizError) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t == e.Errno
}

// From 从任意错误中提取错误码，无法识别时返回 ErrInternalServer
func From(err error) *Errno {
	if err == nil {
		return OK
	}
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.Errno
	}
	var code *Errno
	if errors.As(err, &code) {
		return code
	}
	return ErrInternalServer
}

// HTTPStatus 错误码对应的HTTP状态
func HTTPStatus(code *Errno) int {
	switch {
	case code == nil || code == OK:
		return http.StatusOK
	case code == ErrMediaNotFound || code == ErrNotFound:
		return http.StatusNotFound
	case code == ErrQueueFull:
		return http.StatusServiceUnavailable
	case code == ErrFileSizeIllegal:
		return http.StatusRequestEntityTooLarge
	case code.Code >= 20000:
		return http.StatusBadRequest
	case code.Code >= 400 && code.Code < 500:
		return code.Code
	default:
		return http.StatusInternalServerError
	}
}
