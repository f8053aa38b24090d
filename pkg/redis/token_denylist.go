package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DenylistKeyPrefix 已吊销访问令牌key前缀
const DenylistKeyPrefix = "vidhub:token:revoked:"

// TokenDenylist 基于Redis的访问令牌黑名单
// key 的 TTL 等于令牌剩余有效期，令牌过期后记录自动清除
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(c *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: c}
}

// Revoke 吊销令牌
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	return nil
}

// IsRevoked 判断令牌是否已吊销
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, denylistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("查询令牌黑名单失败: %w", err)
	}
	return n > 0, nil
}

func denylistKey(jti string) string {
	return DenylistKeyPrefix + jti
}
