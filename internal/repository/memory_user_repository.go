package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"vidhub/internal/model"
)

// MemoryUserRepository 进程内实现，database.driver=memory 时使用
// 唯一约束与GORM实现保持一致，返回值均为副本
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]*model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{nextID: 1, users: make(map[uint]*model.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrUserExists
		}
	}

	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.nextID++

	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (*model.User, error) {
	if username == "" && email == "" {
		return nil, ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *model.User
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			if found == nil || u.ID < found.ID {
				found = u
			}
		}
	}
	if found == nil {
		return nil, ErrUserNotFound
	}
	return cloneUser(found), nil
}

func (r *MemoryUserRepository) SetRefreshToken(_ context.Context, id uint, token string) error {
	return r.update(id, func(u *model.User) error {
		u.RefreshToken = &token
		return nil
	})
}

func (r *MemoryUserRepository) CompareAndSwapRefreshToken(_ context.Context, id uint, old, next string) (bool, error) {
	swapped := false
	err := r.update(id, func(u *model.User) error {
		if u.HasRefreshToken(old) {
			u.RefreshToken = &next
			swapped = true
		}
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return swapped, err
}

func (r *MemoryUserRepository) ClearRefreshToken(_ context.Context, id uint) error {
	return r.update(id, func(u *model.User) error {
		u.RefreshToken = nil
		return nil
	})
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id uint, hash string) error {
	return r.update(id, func(u *model.User) error {
		u.Password = hash
		return nil
	})
}

func (r *MemoryUserRepository) UpdateAccountDetails(ctx context.Context, id uint, fullName, email string) (*model.User, error) {
	err := r.update(id, func(u *model.User) error {
		for _, other := range r.users {
			if other.ID != id && other.Email == email {
				return ErrUserExists
			}
		}
		u.FullName = fullName
		u.Email = email
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) UpdateAvatar(ctx context.Context, id uint, url string) (*model.User, error) {
	if err := r.update(id, func(u *model.User) error {
		u.Avatar = url
		return nil
	}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) UpdateCoverImage(ctx context.Context, id uint, url string) (*model.User, error) {
	if err := r.update(id, func(u *model.User) error {
		u.CoverImage = url
		return nil
	}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) update(id uint, fn func(u *model.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	return nil
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		cp.RefreshToken = &token
	}
	return &cp
}
