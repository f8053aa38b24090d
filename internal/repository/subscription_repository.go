package repository

import (
	"context"
	"fmt"
	"sync"

	"vidhub/internal/model"

	"gorm.io/gorm"
)

// SubscriptionRepository 订阅关系的只读查询
type SubscriptionRepository interface {
	CountSubscribers(ctx context.Context, channelID uint) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID uint) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID uint) (bool, error)
}

// GormSubscriptionRepository 基于GORM的实现
type GormSubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// CountSubscribers 频道的订阅者数量
func (r *GormSubscriptionRepository) CountSubscribers(ctx context.Context, channelID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return count, nil
}

// CountSubscriptions 用户订阅的频道数量
func (r *GormSubscriptionRepository) CountSubscriptions(ctx context.Context, subscriberID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscriber_id = ?", subscriberID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return count, nil
}

// IsSubscribed subscriber 是否订阅了 channel
func (r *GormSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return count > 0, nil
}

// MemorySubscriptionRepository 进程内实现，关系在构造时给定
type MemorySubscriptionRepository struct {
	mu   sync.RWMutex
	subs []model.Subscription
}

func NewMemorySubscriptionRepository(subs ...model.Subscription) *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{subs: append([]model.Subscription(nil), subs...)}
}

func (r *MemorySubscriptionRepository) CountSubscribers(_ context.Context, channelID uint) (int64, error) {
	return r.count(func(s model.Subscription) bool { return s.ChannelID == channelID }), nil
}

func (r *MemorySubscriptionRepository) CountSubscriptions(_ context.Context, subscriberID uint) (int64, error) {
	return r.count(func(s model.Subscription) bool { return s.SubscriberID == subscriberID }), nil
}

func (r *MemorySubscriptionRepository) IsSubscribed(_ context.Context, subscriberID, channelID uint) (bool, error) {
	n := r.count(func(s model.Subscription) bool {
		return s.SubscriberID == subscriberID && s.ChannelID == channelID
	})
	return n > 0, nil
}

func (r *MemorySubscriptionRepository) count(match func(model.Subscription) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, s := range r.subs {
		if match(s) {
			n++
		}
	}
	return n
}
