package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultRedisChannel is the pub/sub channel used for change events
const DefaultRedisChannel = "water:sensor:changed"

// RedisNotifier signals on every message published to a Redis channel
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier wraps an existing client
func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Name identifies the notifier in logs
func (n *RedisNotifier) Name() string {
	return "redis:" + n.channel
}

// Subscribe subscribes to the channel until ctx is cancelled
func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}
	n.logger.Info("subscribed to redis channel", zap.String("channel", n.channel))

	sig := NewSignal()
	messages := pubsub.Channel()
	go func() {
		defer sig.Close()
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				n.logger.Debug("sensor change message", zap.String("channel", msg.Channel))
				sig.Fire()
			}
		}
	}()
	return sig.C(), nil
}

// Announce publishes a change event on the channel
func (n *RedisNotifier) Announce(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.channel, err)
	}
	return nil
}
