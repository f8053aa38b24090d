// Package apperror 定义带HTTP状态码的业务错误。
// Message 返回给客户端，Code 与 Cause 只写入日志。
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// 内部错误码
const (
	CodeTokenGenerationFailed = "TOKEN_GENERATION_FAILED"
	CodeMediaUploadFailed     = "MEDIA_UPLOAD_FAILED"
	CodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	CodeRegistrationFailed    = "REGISTRATION_FAILED"
)

// Error 业务错误
type Error struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCode 返回附带内部错误码的副本
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// WithCause 返回附带原始错误的副本
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Cause = err
	return &cp
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }
func Internal(message string) *Error     { return New(http.StatusInternalServerError, message) }

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
