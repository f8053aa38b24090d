package handler

import (
	"vidhub/internal/service"
	"vidhub/pkg/jwt"
	"vidhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChannelHandler 频道资料
type ChannelHandler struct {
	service *service.ChannelService
}

func NewChannelHandler(s *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: s}
}

// GetChannelProfile 获取频道资料（需要JWT认证）
func (h *ChannelHandler) GetChannelProfile(c *gin.Context) {
	profile, err := h.service.GetChannelProfile(c.Request.Context(), c.Param("username"), jwt.GetUserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.SuccessWithMessage(c, "User channel fetched successfully", &response.ChannelProfileResponse{
		UserInfo:                  response.FilterUserInfo(profile.User),
		SubscribersCount:          profile.SubscribersCount,
		ChannelsSubscribedToCount: profile.ChannelsSubscribedToCount,
		IsSubscribed:              profile.IsSubscribed,
	})
}
