package jwt

import (
	"strconv"
	"strings"

	"vidhub/pkg/logger"
	"vidhub/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// AccessTokenCookie 访问令牌Cookie名
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie 刷新令牌Cookie名
	RefreshTokenCookie = "refreshToken"

	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextUsernameKey 用户名在gin.Context中的键名
	ContextUsernameKey = "username"
	// ContextClaimsKey JWT声明在gin.Context中的键名
	ContextClaimsKey = "jwt_claims"
)

// AuthMiddleware JWT认证中间件
// 令牌优先从 accessToken Cookie 读取，其次是 Authorization: Bearer <token>
// 验证通过后将用户信息存入gin.Context
func (s *JWTService) AuthMiddleware(denylist Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractAccessToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "Unauthorized request")
			c.Abort()
			return
		}

		claims, err := s.ValidateAccessToken(tokenString)
		if err != nil {
			logger.Warn("JWT验证失败",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			response.Unauthorized(c, "Invalid access token")
			c.Abort()
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			response.Unauthorized(c, "Invalid access token")
			c.Abort()
			return
		}

		if denylist != nil {
			revoked, err := denylist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("查询令牌黑名单失败", zap.Error(err))
				response.InternalError(c, "Internal server error")
				c.Abort()
				return
			}
			if revoked {
				response.Unauthorized(c, "Invalid access token")
				c.Abort()
				return
			}
		}

		username := ""
		if claims.Data != nil {
			if u, ok := claims.Data["username"].(string); ok {
				username = u
			}
		}

		c.Set(ContextUserIDKey, uint(userID))
		c.Set(ContextUsernameKey, username)
		c.Set(ContextClaimsKey, claims)

		logger.Debug("用户访问接口",
			zap.Uint64("user_id", userID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.Next()
	}
}

func extractAccessToken(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetUserID 从gin.Context中获取用户ID，未认证时返回0
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

// GetUsername 从gin.Context中获取用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsernameKey)
}

// GetClaims 从gin.Context中获取JWT声明
func GetClaims(c *gin.Context) *CustomClaims {
	if claims, exists := c.Get(ContextClaimsKey); exists {
		if cl, ok := claims.(*CustomClaims); ok {
			return cl
		}
	}
	return nil
}
