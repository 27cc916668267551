package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/metrics"
	"github.com/adgraph/backend/pkg/logger"
)

// Client caches answered query results. Only sessionless queries are cached;
// anything session-bound depends on conversation state and must not be
// served from here.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetResult stores a serialized query result under its cache key.
func (c *Client) SetResult(ctx context.Context, key string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf("query:%s", key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set query cache: %w", err)
	}

	logger.Debug("Query result cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
	return nil
}

// GetResult loads a cached result into result, reporting whether it was
// found.
func (c *Client) GetResult(ctx context.Context, key string, result interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("query:%s", key)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("query").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get query cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	metrics.CacheHits.WithLabelValues("query").Inc()
	logger.Debug("Query cache hit", zap.String("key", key))
	return true, nil
}

// InvalidateAll drops every cached query result. Keys embed a hash of the
// client id and query, so targeted invalidation is not possible.
func (c *Client) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "query:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Query cache invalidated")
	return nil
}
