package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "nlportal:messages"

// RedisBackend fans messages out over a Redis pub/sub channel.
type RedisBackend struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisBackend(client *redis.Client, channel string, logger *slog.Logger) *RedisBackend {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBackend{client: client, channel: channel, logger: logger}
}

func (r *RedisBackend) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Receive subscribes to the channel and blocks until ctx is done.
// Undecodable payloads are logged and skipped.
func (r *RedisBackend) Receive(ctx context.Context, deliver func(Message)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before draining.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.WarnContext(ctx, "skipping undecodable message", "channel", m.Channel, "error", err)
				continue
			}
			deliver(msg)
		}
	}
}
