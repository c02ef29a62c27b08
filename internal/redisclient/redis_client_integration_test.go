//go:build integration

package redisclient

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/supermancell/cinebuddy/internal/common"
)

// recentAuthEvents reads back up to n of the newest events, newest first.
func recentAuthEvents(ctx context.Context, c *Client, n int64) ([]common.AuthEvent, error) {
	raw, err := c.rdb.LRange(ctx, c.authEventsKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]common.AuthEvent, 0, len(raw))
	for _, item := range raw {
		var ev common.AuthEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func setupRedis(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewClient(ctx, endpoint, "", "list:auth:events:test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishAuthEvent_Integration(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, client.PublishAuthEvent(ctx, common.AuthEvent{
		Type: common.EventUserRegistered, UserID: "u1", Email: "a@b.c", Timestamp: 100,
	}))
	require.NoError(t, client.PublishAuthEvent(ctx, common.AuthEvent{
		Type: common.EventUserLoggedIn, UserID: "u1", Email: "a@b.c", Timestamp: 200,
	}))

	events, err := recentAuthEvents(ctx, client, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, common.EventUserLoggedIn, events[0].Type)
	assert.Equal(t, int64(200), events[0].Timestamp)
	assert.Equal(t, common.EventUserRegistered, events[1].Type)
}
