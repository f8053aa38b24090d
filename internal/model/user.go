package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 索引与唯一约束：用户名唯一（存储为小写）、邮箱唯一
// 说明：Password 仅存储 bcrypt 哈希，不存储明文，也不会出现在任何响应中
// RefreshToken 为当前唯一有效的刷新令牌，登出后置为 NULL

type User struct {
	ID           uint           `gorm:"primaryKey"`
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名(小写)"`
	Email        string         `gorm:"type:varchar(128);not null;uniqueIndex;comment:邮箱"`
	FullName     string         `gorm:"type:varchar(128);not null;index;comment:姓名"`
	Password     string         `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Avatar       string         `gorm:"type:varchar(512);not null;comment:头像URL"`
	CoverImage   string         `gorm:"type:varchar(512);comment:封面图URL"`
	RefreshToken *string        `gorm:"type:varchar(512);comment:刷新令牌"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名（全局配置使用单数表名）
func (User) TableName() string { return "user" }

// HasRefreshToken 判断给定令牌是否为当前保存的刷新令牌
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && token != "" && *u.RefreshToken == token
}
