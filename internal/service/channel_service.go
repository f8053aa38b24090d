package service

import (
	"context"
	"errors"
	"strings"

	"vidhub/internal/model"
	"vidhub/internal/repository"
	"vidhub/pkg/apperror"
)

// ChannelProfile 频道公开资料
type ChannelProfile struct {
	User                      *model.User
	SubscribersCount          int64
	ChannelsSubscribedToCount int64
	IsSubscribed              bool
}

// ChannelService 频道资料（订阅关系只读）
type ChannelService struct {
	users repository.UserRepository
	subs  repository.SubscriptionRepository
}

func NewChannelService(users repository.UserRepository, subs repository.SubscriptionRepository) *ChannelService {
	return &ChannelService{users: users, subs: subs}
}

// GetChannelProfile 按用户名获取频道资料，viewerID 为当前登录用户
func (s *ChannelService) GetChannelProfile(ctx context.Context, username string, viewerID uint) (*ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperror.BadRequest("Username is missing")
	}

	channel, err := s.users.FindByUsernameOrEmail(ctx, username, "")
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("Channel does not exist")
		}
		return nil, channelFailed(err)
	}

	subscribers, err := s.subs.CountSubscribers(ctx, channel.ID)
	if err != nil {
		return nil, channelFailed(err)
	}
	subscribedTo, err := s.subs.CountSubscriptions(ctx, channel.ID)
	if err != nil {
		return nil, channelFailed(err)
	}

	isSubscribed := false
	if viewerID != 0 {
		if isSubscribed, err = s.subs.IsSubscribed(ctx, viewerID, channel.ID); err != nil {
			return nil, channelFailed(err)
		}
	}

	return &ChannelProfile{
		User:                      channel,
		SubscribersCount:          subscribers,
		ChannelsSubscribedToCount: subscribedTo,
		IsSubscribed:              isSubscribed,
	}, nil
}

func channelFailed(err error) error {
	return apperror.Internal("Something went wrong while fetching channel").WithCause(err)
}
