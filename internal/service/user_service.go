package service

//go:generate mockgen -source=user_service.go -destination=user_service_mock.go -package=service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vidhub/internal/model"
	"vidhub/internal/repository"
	"vidhub/pkg/apperror"
	"vidhub/pkg/jwt"
	"vidhub/pkg/logger"
	"vidhub/pkg/media"
	"vidhub/pkg/password"

	"go.uber.org/zap"
)

var (
	errUserExists       = apperror.Conflict("User with email or username already exists")
	errUserDoesNotExist = apperror.BadRequest("User does not exist")
	errAllFields        = apperror.BadRequest("All fields are required")
)

// MediaAttacher 上传本地临时文件
type MediaAttacher interface {
	Attach(ctx context.Context, localPath string) (*media.UploadResult, error)
}

// RegisterInput 注册参数，文件为处理器保存的临时路径
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput 登录参数，用户名与邮箱至少一个
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult 登录结果
type LoginResult struct {
	User   *model.User
	Tokens *TokenPair
}

type UserService struct {
	users      repository.UserRepository
	tokens     *TokenService
	jwtService *jwt.JWTService
	media      MediaAttacher
	denylist   jwt.Denylist
}

func NewUserService(
	users repository.UserRepository,
	tokens *TokenService,
	jwtService *jwt.JWTService,
	attacher MediaAttacher,
	denylist jwt.Denylist,
) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		jwtService: jwtService,
		media:      attacher,
		denylist:   denylist,
	}
}

// Register 注册
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, errAllFields
	}

	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, errUserExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, registrationFailed(err)
	}

	avatarRequired := apperror.BadRequest("Avatar file is required")
	if in.AvatarPath == "" {
		return nil, avatarRequired
	}

	// 头像必须上传成功，封面失败则留空
	avatar, err := s.media.Attach(ctx, in.AvatarPath)
	if err != nil {
		return nil, avatarRequired.WithCause(err)
	}
	if avatar == nil {
		return nil, avatarRequired
	}

	coverURL := ""
	cover, err := s.media.Attach(ctx, in.CoverImagePath)
	if err != nil {
		logger.Warn("封面图上传失败", zap.String("username", username), zap.Error(err))
	} else if cover != nil {
		coverURL = cover.URL
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, registrationFailed(err)
	}

	user := &model.User{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   hash,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, errUserExists
		}
		return nil, registrationFailed(err)
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, registrationFailed(err)
	}

	logger.Info("用户注册成功", zap.Uint("user_id", created.ID), zap.String("username", created.Username))
	return created, nil
}

// Login 登录并签发令牌
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return nil, apperror.BadRequest("Username or email is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errUserDoesNotExist
		}
		return nil, apperror.Internal("Something went wrong while logging in").WithCause(err)
	}

	if !password.Verify(in.Password, user.Password) {
		return nil, apperror.Unauthorized("Invalid user credentials")
	}

	tokens, err := s.tokens.IssueTokens(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	loggedIn, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperror.Internal("Something went wrong while logging in").WithCause(err)
	}

	logger.Info("用户登录成功", zap.Uint("user_id", loggedIn.ID))
	return &LoginResult{User: loggedIn, Tokens: tokens}, nil
}

// Logout 清除刷新令牌，并吊销当前访问令牌直到其过期
func (s *UserService) Logout(ctx context.Context, userID uint, claims *jwt.CustomClaims) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return apperror.Internal("Something went wrong while logging out").WithCause(err)
	}

	if s.denylist != nil && claims != nil {
		if err := s.denylist.Revoke(ctx, claims.ID, jwt.RemainingTTL(claims)); err != nil {
			logger.Warn("访问令牌吊销失败", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// RefreshAccessToken 校验刷新令牌并轮换，所有失败均为401
func (s *UserService) RefreshAccessToken(ctx context.Context, incoming string) (*TokenPair, error) {
	if incoming == "" {
		return nil, apperror.Unauthorized("Unauthorized request")
	}

	invalid := apperror.Unauthorized("Invalid refresh token").WithCode(apperror.CodeInvalidRefreshToken)

	claims, err := s.jwtService.ValidateRefreshToken(incoming)
	if err != nil {
		return nil, invalid.WithCause(err)
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, invalid.WithCause(err)
	}

	user, err := s.users.GetByID(ctx, uint(userID))
	if err != nil {
		return nil, invalid.WithCause(err)
	}

	if !user.HasRefreshToken(incoming) {
		return nil, apperror.Unauthorized("Refresh token is expired or used").
			WithCode(apperror.CodeInvalidRefreshToken)
	}

	pair, err := s.tokens.RotateTokens(ctx, user, incoming)
	if err != nil {
		return nil, asUnauthorized(err)
	}
	return pair, nil
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return errAllFields
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return lookupFailed(err)
	}

	if !password.Verify(oldPassword, user.Password) {
		return apperror.BadRequest("Invalid old password")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperror.Internal("Something went wrong while changing password").WithCause(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return lookupFailed(err)
	}
	return nil
}

// GetCurrentUser 当前登录用户
func (s *UserService) GetCurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.Unauthorized("Invalid access token")
		}
		return nil, apperror.Internal("Something went wrong while fetching user").WithCause(err)
	}
	return user, nil
}

// UpdateAccountDetails 修改姓名与邮箱
func (s *UserService) UpdateAccountDetails(ctx context.Context, userID uint, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, errAllFields
	}

	user, err := s.users.UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, errUserExists
		}
		return nil, lookupFailed(err)
	}
	return user, nil
}

// UpdateAvatar 替换头像
func (s *UserService) UpdateAvatar(ctx context.Context, userID uint, localPath string) (*model.User, error) {
	if localPath == "" {
		return nil, apperror.BadRequest("Avatar file is missing")
	}
	return s.replaceImage(ctx, userID, localPath, "Error while uploading avatar", s.users.UpdateAvatar)
}

// UpdateCoverImage 替换封面图
func (s *UserService) UpdateCoverImage(ctx context.Context, userID uint, localPath string) (*model.User, error) {
	if localPath == "" {
		return nil, apperror.BadRequest("Cover image file is missing")
	}
	return s.replaceImage(ctx, userID, localPath, "Error while uploading cover image", s.users.UpdateCoverImage)
}

func (s *UserService) replaceImage(
	ctx context.Context,
	userID uint,
	localPath string,
	uploadFailedMsg string,
	update func(ctx context.Context, id uint, url string) (*model.User, error),
) (*model.User, error) {
	uploaded, err := s.media.Attach(ctx, localPath)
	if err != nil {
		return nil, apperror.BadRequest(uploadFailedMsg).WithCause(err)
	}
	if uploaded == nil || uploaded.URL == "" {
		return nil, apperror.BadRequest(uploadFailedMsg)
	}

	user, err := update(ctx, userID, uploaded.URL)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.Unauthorized("User does not exist")
		}
		return nil, apperror.Internal("Something went wrong while updating user").WithCause(err)
	}
	return user, nil
}

func registrationFailed(err error) error {
	return apperror.Internal("Something went wrong while registering the user").
		WithCode(apperror.CodeRegistrationFailed).
		WithCause(err)
}

func lookupFailed(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return errUserDoesNotExist
	}
	return apperror.Internal("Something went wrong while updating user").WithCause(err)
}

// asUnauthorized 刷新流程中的错误统一为401，保留原消息
func asUnauthorized(err error) error {
	appErr, ok := apperror.As(err)
	if !ok {
		return apperror.Unauthorized("Invalid refresh token").WithCause(err)
	}
	if appErr.Status == http.StatusUnauthorized {
		return appErr
	}
	return apperror.Unauthorized(appErr.Message).WithCode(appErr.Code).WithCause(appErr.Cause)
}
