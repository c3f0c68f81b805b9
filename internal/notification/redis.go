package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel ledger events are published on.
const DefaultChannel = "intime:events"

// RedisNotifier publishes events as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier builds a publisher; an empty channel selects DefaultChannel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Send publishes the event.
func (n *RedisNotifier) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
