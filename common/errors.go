package common

import (
	"errors"
	"fmt"
)

// 错误分类，调用方通过 errors.Is 判断类别
var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrProvider          = errors.New("provider error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrStorage           = errors.New("storage error")
)

// ParamError 用户输入校验失败，Field 为出错的字段名
type ParamError struct {
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}

func (e *ParamError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// InvalidParam 创建 ParamError
func InvalidParam(field, format string, args ...interface{}) error {
	return &ParamError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError 远程图片接口调用失败（鉴权、限流、内容策略、网络等）
type ProviderError struct {
	Message    string
	StatusCode int    // HTTP 状态码，网络错误时为 0
	Body       string // 原始响应体（可选）
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// MalformedResponse 接口返回中没有可用的内联图片数据
func MalformedResponse(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// StorageError 本地文件写入或清理失败
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
