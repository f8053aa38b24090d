package response

import (
	"net/http"
	"time"

	"vidhub/internal/model"
	"vidhub/pkg/apperror"
	"vidhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	StatusCode int         `json:"statusCode"` // HTTP状态码
	Data       interface{} `json:"data"`       // 响应数据，错误时为null
	Message    string      `json:"message"`    // 响应消息
	Success    bool        `json:"success"`    // 状态码 < 400 时为 true
}

// JSON 以给定状态码输出统一结构
func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, "success", data)
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

// Created 201响应
func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

// Error 错误响应
func Error(c *gin.Context, status int, message string) {
	JSON(c, status, message, nil)
}

// BadRequest 400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401错误
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// InternalError 500错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// Fail 将任意错误转换为错误响应
// *apperror.Error 保留其状态码与消息，其余错误一律 500
// 内部错误码与原始错误只写日志，不返回给客户端
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	appErr, ok := apperror.As(err)
	if !ok {
		logger.Error("未处理的错误",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		InternalError(c, "Internal server error")
		return
	}

	if appErr.Cause != nil || appErr.Status >= http.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", appErr.Status),
			zap.String("code", appErr.Code),
			zap.String("message", appErr.Message),
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.NamedError("cause", appErr.Cause))
		}
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("请求处理失败", fields...)
		} else {
			logger.Warn("请求处理失败", fields...)
		}
	}

	Error(c, appErr.Status, appErr.Message)
}

// UserInfo 用户信息（隐藏密码与刷新令牌）
type UserInfo struct {
	ID         uint      `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}

	return &UserInfo{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         *UserInfo `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

// TokenResponse 刷新令牌响应
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ChannelProfileResponse 频道资料响应
type ChannelProfileResponse struct {
	*UserInfo
	SubscribersCount          int64 `json:"subscribersCount"`
	ChannelsSubscribedToCount int64 `json:"channelsSubscribedToCount"`
	IsSubscribed              bool  `json:"isSubscribed"`
}
