package model

import (
	"time"

	"gorm.io/gorm"
)

// Subscription 订阅关系：Subscriber 关注 Channel，二者都是 User
// (subscriber, channel) 未加唯一约束

type Subscription struct {
	ID           uint           `gorm:"primaryKey"`
	SubscriberID uint           `gorm:"not null;index;comment:订阅者ID"`
	ChannelID    uint           `gorm:"not null;index;comment:频道(被订阅用户)ID"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Subscription) TableName() string { return "subscription" }
