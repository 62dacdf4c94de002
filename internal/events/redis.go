package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the event channel.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// DefaultRedisConfig returns the local development defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		Namespace: "default",
	}
}

// RedisPublisher pushes event envelopes onto a namespaced pub/sub channel
// for downstream notification fan-out. The engine only publishes; client
// delivery lives elsewhere.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for the configured namespace.
// Channel names take the form sprintmetrics:{namespace}:events.
func NewRedisPublisher(config RedisConfig) (*RedisPublisher, error) {
	if config.Namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	return &RedisPublisher{
		rdb: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		channel: fmt.Sprintf("sprintmetrics:%s:events", config.Namespace),
	}, nil
}

// Publish serializes the envelope and publishes it. Subscribers receive
// the full event JSON.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity. Useful for startup health checks.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis connection. Implements io.Closer.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
