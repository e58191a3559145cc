package notify

import (
	"context"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// EventTypeNotification is the event type of published notifications.
const EventTypeNotification = "storefront.notification"

// EventPublisher is implemented by *pkgkafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaNotifier publishes notifications as events on a Kafka topic.
type KafkaNotifier struct {
	publisher EventPublisher
	topic     string
	source    string
	logger    *slog.Logger
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(publisher EventPublisher, topic, source string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		topic:     topic,
		source:    source,
		logger:    logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, message string, severity Severity) {
	payload := New(ctx, message, severity)

	event, err := pkgkafka.NewEvent(EventTypeNotification, payload.CorrelationID, "notification", n.source, payload)
	if err != nil {
		n.logger.ErrorContext(ctx, "build notification event", slog.String("error", err.Error()))
		return
	}
	event.WithCorrelationID(payload.CorrelationID).WithMetadata("severity", string(severity))

	if err := n.publisher.Publish(ctx, n.topic, event); err != nil {
		n.logger.WarnContext(ctx, "notification not published to kafka",
			slog.String("topic", n.topic),
			slog.String("error", err.Error()),
		)
	}
}
