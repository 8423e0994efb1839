package entity

import "errors"

// DomainError 领域错误
type DomainError struct {
	message string
}

func NewDomainError(message string) *DomainError {
	return &DomainError{message: message}
}

func (e *DomainError) Error() string {
	return e.message
}

// IsDomainError 判断是否为领域规则拒绝
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
