package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "mathsolver:user:"

type Config struct {
	Client *redis.Client

	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string

	TTL time.Duration
}

type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// cachedUser deliberately omits the entitlement fields.
type cachedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

func NewRedisCache(config Config) (*RedisCache, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.TTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", config.TTL)
	}

	return &RedisCache{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (c *RedisCache) key(id string) string {
	return c.keyPrefix + id
}

func (c *RedisCache) Get(ctx context.Context, id string) (*models.User, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", c.key(id), err)
	}

	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	return &models.User{
		ID:        cu.ID,
		Email:     cu.Email,
		Name:      cu.Name,
		Role:      cu.Role,
		CreatedAt: cu.CreatedAt,
		LastLogin: cu.LastLogin,
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, user *models.User) error {
	raw, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := c.client.Set(ctx, c.key(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", c.key(user.ID), err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
