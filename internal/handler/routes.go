package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes 挂载 /users 路由，auth 为JWT认证中间件
func RegisterUserRoutes(rg *gin.RouterGroup, users *UserHandler, channels *ChannelHandler, auth gin.HandlerFunc) {
	g := rg.Group("/users")

	// 公开路由
	g.POST("/register", users.Register)
	g.POST("/login", users.Login)
	g.POST("/refresh-token", users.RefreshAccessToken)

	// 需要认证的路由
	protected := g.Group("")
	protected.Use(auth)
	{
		protected.POST("/logout", users.Logout)
		protected.POST("/change-password", users.ChangePassword)
		protected.GET("/get-user", users.GetCurrentUser)
		protected.POST("/update-user", users.UpdateAccountDetails)
		protected.POST("/update-avatar", users.UpdateAvatar)
		protected.POST("/update-cover-image", users.UpdateCoverImage)
		protected.GET("/c/:username", channels.GetChannelProfile)
	}
}
