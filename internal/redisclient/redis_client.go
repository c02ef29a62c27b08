package redisclient

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/supermancell/cinebuddy/internal/common"
)

// maxAuthEvents bounds the auth event list; older entries are trimmed.
const maxAuthEvents = 10000

// Client wraps Redis operations for the system
type Client struct {
	rdb           *redis.Client
	authEventsKey string
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password, authEventsKey string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newClient(rdb, authEventsKey), nil
}

func newClient(rdb *redis.Client, authEventsKey string) *Client {
	return &Client{
		rdb:           rdb,
		authEventsKey: authEventsKey,
	}
}

// PublishAuthEvent pushes an auth event onto the auth events list, newest first.
func (c *Client) PublishAuthEvent(ctx context.Context, event common.AuthEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, c.authEventsKey, data)
	pipe.LTrim(ctx, c.authEventsKey, 0, maxAuthEvents-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push auth event to Redis list: %w", err)
	}

	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
