package service

import (
	"context"
	"strconv"

	"vidhub/internal/model"
	"vidhub/internal/repository"
	"vidhub/pkg/apperror"
	"vidhub/pkg/jwt"
)

var errTokenGeneration = apperror.Internal("Something went wrong while generating tokens").
	WithCode(apperror.CodeTokenGenerationFailed)

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService 签发与轮换令牌
type TokenService struct {
	users      repository.UserRepository
	jwtService *jwt.JWTService
}

func NewTokenService(users repository.UserRepository, jwtService *jwt.JWTService) *TokenService {
	return &TokenService{users: users, jwtService: jwtService}
}

// IssueTokens 为用户签发新令牌对并保存刷新令牌
func (s *TokenService) IssueTokens(ctx context.Context, userID uint) (*TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errTokenGeneration.WithCause(err)
	}

	pair, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, errTokenGeneration.WithCause(err)
	}
	return pair, nil
}

// RotateTokens 用新令牌对替换 presented，presented 已被替换或清除时返回401
func (s *TokenService) RotateTokens(ctx context.Context, user *model.User, presented string) (*TokenPair, error) {
	pair, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.users.CompareAndSwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, errTokenGeneration.WithCause(err)
	}
	if !swapped {
		return nil, apperror.Unauthorized("Refresh token is expired or used").
			WithCode(apperror.CodeInvalidRefreshToken)
	}
	return pair, nil
}

func (s *TokenService) sign(user *model.User) (*TokenPair, error) {
	subject := strconv.FormatUint(uint64(user.ID), 10)

	access, err := s.jwtService.GenerateAccessToken(subject, map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
		"fullName": user.FullName,
	})
	if err != nil {
		return nil, errTokenGeneration.WithCause(err)
	}

	refresh, err := s.jwtService.GenerateRefreshToken(subject)
	if err != nil {
		return nil, errTokenGeneration.WithCause(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
