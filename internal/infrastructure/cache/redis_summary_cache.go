package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/backupflow/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSummaryCache implements billing.SummaryCache using Redis.
// Suitable for distributed deployments where multiple instances serve the
// billing summary endpoint.
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisSummaryCache creates a new Redis-based summary cache
func NewRedisSummaryCache(cfg RedisConfig) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSummaryCache{
		client:    client,
		keyPrefix: "billing:summary:",
	}, nil
}

// NewRedisSummaryCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSummaryCacheWithClient(client *redis.Client, keyPrefix string) *RedisSummaryCache {
	if keyPrefix == "" {
		keyPrefix = "billing:summary:"
	}
	return &RedisSummaryCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// GetSummary returns the cached summary, or nil on a miss
func (c *RedisSummaryCache) GetSummary(ctx context.Context, userID uuid.UUID) (*billing.BillingSummary, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+userID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read summary from cache: %w", err)
	}

	var summary billing.BillingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &summary, nil
}

// SetSummary stores a summary with a TTL
func (c *RedisSummaryCache) SetSummary(ctx context.Context, userID uuid.UUID, summary *billing.BillingSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+userID.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write summary to cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a user
func (c *RedisSummaryCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.keyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate summary cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

// Ensure RedisSummaryCache implements billing.SummaryCache
var _ billing.SummaryCache = (*RedisSummaryCache)(nil)
