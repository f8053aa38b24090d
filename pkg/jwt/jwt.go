package jwt

import (
	"errors"
	"fmt"
	"time"

	"vidhub/config"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService 提供 JWT 生成与校验能力
// 使用对称密钥 HS256，访问令牌与刷新令牌使用不同密钥
// Subject 存放用户ID，ID(jti) 每次签发都不同，保证轮换后的令牌不会与旧令牌相同

type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// CustomClaims 自定义声明载荷
// Data 用于扩展非敏感业务字段（仅访问令牌携带）

type CustomClaims struct {
	Data map[string]interface{} `json:"data,omitempty"`
	jwtv5.RegisteredClaims
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessExpire:  cfg.AccessExpire,
		refreshExpire: cfg.RefreshExpire,
	}
}

// AccessTTL 访问令牌有效期
func (s *JWTService) AccessTTL() time.Duration { return s.accessExpire }

// RefreshTTL 刷新令牌有效期
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshExpire }

// GenerateAccessToken 生成访问令牌，data 写入 Data 字段
func (s *JWTService) GenerateAccessToken(userID string, data map[string]interface{}) (string, error) {
	return s.sign(s.accessSecret, s.accessExpire, userID, data)
}

// GenerateRefreshToken 生成刷新令牌，只携带用户ID
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.sign(s.refreshSecret, s.refreshExpire, userID, nil)
}

// ValidateAccessToken 校验访问令牌
func (s *JWTService) ValidateAccessToken(tokenString string) (*CustomClaims, error) {
	return s.parse(s.accessSecret, tokenString)
}

// ValidateRefreshToken 校验刷新令牌
func (s *JWTService) ValidateRefreshToken(tokenString string) (*CustomClaims, error) {
	return s.parse(s.refreshSecret, tokenString)
}

func (s *JWTService) sign(secret []byte, expireAfter time.Duration, userID string, data map[string]interface{}) (string, error) {
	if userID == "" {
		return "", errors.New("userID is required")
	}

	now := time.Now()
	claims := &CustomClaims{
		Data: data,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(expireAfter)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

func (s *JWTService) parse(secret []byte, tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}

	claims := &CustomClaims{}
	parsedToken, err := jwtv5.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwtv5.Token) (interface{}, error) {
			// 验证签名方法
			if token.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !parsedToken.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// RemainingTTL 令牌剩余有效时间
func RemainingTTL(claims *CustomClaims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 0 {
		return 0
	}
	return ttl
}
