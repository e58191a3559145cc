package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ChannelPublisher is implemented by *redis.Client.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier PUBLISHes notifications as JSON on a Redis channel.
type RedisNotifier struct {
	client  ChannelPublisher
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier creates a RedisNotifier.
func NewRedisNotifier(client ChannelPublisher, channel string, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, message string, severity Severity) {
	data, err := json.Marshal(New(ctx, message, severity))
	if err != nil {
		n.logger.ErrorContext(ctx, "encode notification", slog.String("error", err.Error()))
		return
	}

	receivers, err := n.client.Publish(ctx, n.channel, data).Result()
	if err != nil {
		n.logger.WarnContext(ctx, "notification not published to redis",
			slog.String("channel", n.channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if receivers == 0 {
		n.logger.DebugContext(ctx, "notification published without subscribers",
			slog.String("channel", n.channel),
		)
	}
}
