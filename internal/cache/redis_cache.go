package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tokoagen/backend/internal/domain"
)

const (
	roleKeyPrefix    = "tokoagen:role:"
	revokedKeyPrefix = "tokoagen:revoked:"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetRole(ctx context.Context, roleID string) (*domain.Role, bool, error) {
	val, err := c.client.Get(ctx, roleKeyPrefix+roleID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var role domain.Role
	if err := json.Unmarshal([]byte(val), &role); err != nil {
		return nil, false, err
	}
	return &role, true, nil
}

func (c *RedisCache) SetRole(ctx context.Context, role domain.Role, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(role)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roleKeyPrefix+role.ID, payload, ttl).Err()
}

func (c *RedisCache) InvalidateRole(ctx context.Context, roleID string) error {
	return c.client.Del(ctx, roleKeyPrefix+roleID).Err()
}

func (c *RedisCache) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
