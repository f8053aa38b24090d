package handler

import (
	"net/http"
	"strings"

	"vidhub/config"
	"vidhub/internal/service"
	"vidhub/pkg/jwt"
	"vidhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
	uploads *UploadStore
	cookies config.CookieConfig
}

func NewUserHandler(s *service.UserService, uploads *UploadStore, cookies config.CookieConfig) *UserHandler {
	return &UserHandler{service: s, uploads: uploads, cookies: cookies}
}

// Register 用户注册（multipart）
func (h *UserHandler) Register(c *gin.Context) {
	type req struct {
		FullName string `form:"fullName" json:"fullName"`
		Email    string `form:"email" json:"email"`
		Username string `form:"username" json:"username"`
		Password string `form:"password" json:"password"`
	}
	var r req
	if err := c.ShouldBind(&r); err != nil {
		response.BadRequest(c, "All fields are required")
		return
	}

	avatarPath, err := h.uploads.Save(c, "avatar")
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer h.uploads.Cleanup(avatarPath)

	coverPath, err := h.uploads.Save(c, "coverImage")
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer h.uploads.Cleanup(coverPath)

	user, err := h.service.Register(c.Request.Context(), service.RegisterInput{
		FullName:       r.FullName,
		Email:          r.Email,
		Username:       r.Username,
		Password:       r.Password,
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, "User registered successfully", response.FilterUserInfo(user))
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `form:"username" json:"username"`
		Email    string `form:"email" json:"email"`
		Password string `form:"password" json:"password"`
	}
	var r req
	if err := c.ShouldBind(&r); err != nil {
		response.BadRequest(c, "Username or email is required")
		return
	}

	result, err := h.service.Login(c.Request.Context(), service.LoginInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.setTokenCookies(c, result.Tokens)
	response.SuccessWithMessage(c, "User logged in successfully", &response.LoginResponse{
		User:         response.FilterUserInfo(result.User),
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// Logout 用户登出（需要JWT认证）
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), jwt.GetUserID(c), jwt.GetClaims(c)); err != nil {
		response.Fail(c, err)
		return
	}

	h.clearTokenCookies(c)
	response.SuccessWithMessage(c, "User logged out", gin.H{})
}

// RefreshAccessToken 刷新令牌，只需要刷新令牌本身
func (h *UserHandler) RefreshAccessToken(c *gin.Context) {
	incoming, _ := c.Cookie(jwt.RefreshTokenCookie)
	if incoming == "" && c.Request.ContentLength != 0 {
		var body struct {
			RefreshToken string `form:"refreshToken" json:"refreshToken"`
		}
		// 请求体无法解析时按未携带令牌处理
		_ = c.ShouldBind(&body)
		incoming = strings.TrimSpace(body.RefreshToken)
	}

	tokens, err := h.service.RefreshAccessToken(c.Request.Context(), incoming)
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.setTokenCookies(c, tokens)
	response.SuccessWithMessage(c, "Access token refreshed", &response.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// ChangePassword 修改密码（需要JWT认证）
func (h *UserHandler) ChangePassword(c *gin.Context) {
	type req struct {
		OldPassword string `form:"oldPassword" json:"oldPassword"`
		NewPassword string `form:"newPassword" json:"newPassword"`
	}
	var r req
	if err := c.ShouldBind(&r); err != nil {
		response.BadRequest(c, "All fields are required")
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), jwt.GetUserID(c), r.OldPassword, r.NewPassword); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "Password changed successfully", gin.H{})
}

// GetCurrentUser 当前用户（需要JWT认证）
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.service.GetCurrentUser(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "Current user fetched successfully", response.FilterUserInfo(user))
}

// UpdateAccountDetails 修改姓名与邮箱（需要JWT认证）
func (h *UserHandler) UpdateAccountDetails(c *gin.Context) {
	type req struct {
		FullName string `form:"fullName" json:"fullName"`
		Email    string `form:"email" json:"email"`
	}
	var r req
	if err := c.ShouldBind(&r); err != nil {
		response.BadRequest(c, "All fields are required")
		return
	}

	user, err := h.service.UpdateAccountDetails(c.Request.Context(), jwt.GetUserID(c), r.FullName, r.Email)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "Account details updated successfully", response.FilterUserInfo(user))
}

// UpdateAvatar 更新头像（需要JWT认证）
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	localPath, err := h.uploads.Save(c, "avatar")
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer h.uploads.Cleanup(localPath)

	user, err := h.service.UpdateAvatar(c.Request.Context(), jwt.GetUserID(c), localPath)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "Avatar image updated successfully", response.FilterUserInfo(user))
}

// UpdateCoverImage 更新封面图（需要JWT认证）
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	localPath, err := h.uploads.Save(c, "coverImage")
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer h.uploads.Cleanup(localPath)

	user, err := h.service.UpdateCoverImage(c.Request.Context(), jwt.GetUserID(c), localPath)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "Cover image updated successfully", response.FilterUserInfo(user))
}

func (h *UserHandler) setTokenCookies(c *gin.Context, tokens *service.TokenPair) {
	c.SetSameSite(sameSiteMode(h.cookies.SameSite))
	c.SetCookie(jwt.AccessTokenCookie, tokens.AccessToken, 0, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(jwt.RefreshTokenCookie, tokens.RefreshToken, 0, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *UserHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(sameSiteMode(h.cookies.SameSite))
	c.SetCookie(jwt.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(jwt.RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func sameSiteMode(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
