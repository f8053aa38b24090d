package repository

import (
	"context"
	"errors"
	"fmt"

	"vidhub/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with email or username already exists")
)

//go:generate mockgen -source=user_repository.go -destination=user_repository_mock.go -package=repository

// UserRepository 用户存储
// 所有单字段更新都只写对应列，不会重新校验整条记录
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	// FindByUsernameOrEmail 按用户名或邮箱查找，空字符串的条件会被忽略
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	SetRefreshToken(ctx context.Context, id uint, token string) error
	// CompareAndSwapRefreshToken 仅当当前令牌等于 old 时替换为 next，返回是否替换成功
	CompareAndSwapRefreshToken(ctx context.Context, id uint, old, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateAccountDetails(ctx context.Context, id uint, fullName, email string) (*model.User, error)
	UpdateAvatar(ctx context.Context, id uint, url string) (*model.User, error)
	UpdateCoverImage(ctx context.Context, id uint, url string) (*model.User, error)
}

// GormUserRepository 基于GORM的实现
type GormUserRepository struct {
	orm *gorm.DB
}

func NewUserRepository(orm *gorm.DB) *GormUserRepository {
	return &GormUserRepository{orm: orm}
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.orm.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	if username == "" && email == "" {
		return nil, ErrUserNotFound
	}

	q := r.orm.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	default:
		q = q.Where("email = ?", email)
	}

	var u model.User
	if err := q.First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *GormUserRepository) SetRefreshToken(ctx context.Context, id uint, token string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"refresh_token": token})
}

func (r *GormUserRepository) CompareAndSwapRefreshToken(ctx context.Context, id uint, old, next string) (bool, error) {
	res := r.orm.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND refresh_token = ?", id, old).
		Update("refresh_token", next)
	if res.Error != nil {
		return false, fmt.Errorf("rotate refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormUserRepository) ClearRefreshToken(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"refresh_token": nil})
}

func (r *GormUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"password": hash})
}

func (r *GormUserRepository) UpdateAccountDetails(ctx context.Context, id uint, fullName, email string) (*model.User, error) {
	if err := r.updateColumns(ctx, id, map[string]interface{}{"full_name": fullName, "email": email}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormUserRepository) UpdateAvatar(ctx context.Context, id uint, url string) (*model.User, error) {
	if err := r.updateColumns(ctx, id, map[string]interface{}{"avatar": url}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormUserRepository) UpdateCoverImage(ctx context.Context, id uint, url string) (*model.User, error) {
	if err := r.updateColumns(ctx, id, map[string]interface{}{"cover_image": url}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// updateColumns 只更新给定列，0行受影响视为用户不存在
func (r *GormUserRepository) updateColumns(ctx context.Context, id uint, columns map[string]interface{}) error {
	res := r.orm.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("query user: %w", err)
}
