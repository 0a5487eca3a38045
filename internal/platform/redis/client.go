package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vetcred/internal/platform/config"
)

// Client is the shared redis handle. Redis is optional in this system; it
// only backs the login throttle when deployments run more than one process,
// so a nil Client everywhere means the feature degrades to per-process
// memory, not an error.
type Client struct {
	*redis.Client
}

// New dials redis from the config. An empty URL returns (nil, nil): redis
// not configured is a supported state, not a failure.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health satisfies the transport layer's health checker.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
