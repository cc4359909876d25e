// Package redis wraps a pooled go-redis client for the Fastlane settings hash
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thenexusengine/tne_fastlane/internal/config"
	"github.com/thenexusengine/tne_fastlane/pkg/logger"
)

// Client wraps a Redis connection pool
type Client struct {
	client *redis.Client
	addr   string
}

// ClientConfig holds configuration for the Redis client
type ClientConfig struct {
	PoolSize     int
	MinIdleConns int
	// MaxConnAge recycles connections older than this
	MaxConnAge   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// DefaultClientConfig returns the pool settings used by the server
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		PoolSize:     config.RedisPoolSize,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolTimeout:  2 * time.Second,
	}
}

// New creates a client from a redis:// URL with default configuration
func New(redisURL string) (*Client, error) {
	return NewWithConfig(redisURL, DefaultClientConfig())
}

// NewWithConfig creates a client with custom pool configuration. An
// unreachable server is logged but not fatal; commands retry on use.
func NewWithConfig(redisURL string, cfg *ClientConfig) (*Client, error) {
	if redisURL == "" {
		return nil, errors.New("redis URL is empty")
	}
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.ConnMaxLifetime = cfg.MaxConnAge
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolTimeout = cfg.PoolTimeout

	c := &Client{client: redis.NewClient(opts), addr: opts.Addr}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	log := logger.Storage().With().Str("backend", "redis").Logger()
	if err := c.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("address", c.addr).Msg("redis not reachable at startup")
	} else {
		log.Info().Str("address", c.addr).Int("pool_size", cfg.PoolSize).Msg("redis connected")
	}
	return c, nil
}

// Addr returns the server address
func (c *Client) Addr() string {
	return c.addr
}

// HGetAll returns every field of a hash; a missing key yields an empty map
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

// Ping tests the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

// PoolStats returns connection pool statistics
func (c *Client) PoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}
