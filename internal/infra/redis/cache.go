package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/budwatch/budwatch/internal/module/analytics"
	"github.com/budwatch/budwatch/pkg/logger"
)

var _ analytics.Cache = (*Cache)(nil)

const (
	// DefaultTTL bounds how stale a cached aggregate can get between syncs.
	DefaultTTL = 5 * time.Minute

	// KeyPrefix is the prefix for analytics cache keys
	KeyPrefix = "analytics:"
)

// Cache is a Redis-backed read-through cache for analytics aggregates.
// Values are JSON; keys are scoped per budget so a sync can invalidate
// everything it may have changed.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCache creates a new analytics cache
func NewCache(client *redis.Client, log *logger.Logger) *Cache {
	return NewCacheWithTTL(client, DefaultTTL, log)
}

// NewCacheWithTTL creates a new analytics cache with custom TTL
func NewCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "cache"),
	}
}

func (c *Cache) key(budgetID, name string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, budgetID, name)
}

// Get retrieves a cached aggregate into dest. Returns false on a miss.
func (c *Cache) Get(ctx context.Context, budgetID, name string, dest any) (bool, error) {
	key := c.key(budgetID, name)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return false, fmt.Errorf("failed to get cached value: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	c.logger.Debug("cache hit", "key", key)
	return true, nil
}

// Set stores an aggregate with the cache TTL.
func (c *Cache) Set(ctx context.Context, budgetID, name string, value any) error {
	key := c.key(budgetID, name)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to cache value: %w", err)
	}

	return nil
}

// InvalidateBudget drops every cached aggregate for a budget. Called after a
// sync cycle lands new data.
func (c *Cache) InvalidateBudget(ctx context.Context, budgetID string) error {
	pattern := c.key(budgetID, "*")

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	c.logger.Debug("cache invalidated", "budget_id", budgetID, "keys", len(keys))
	return nil
}

// Health checks the Redis connection.
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
