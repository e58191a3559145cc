// Package notify delivers user-visible feedback raised by the storefront
// core. The core only ever calls Notifier.Notify; where the message ends up
// (log line, Kafka topic, Redis channel, in-memory feed) is decided when the
// application is wired.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/pkg/logger"
)

// Severity classifies a notification for the UI.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is the payload published by the sinks.
type Notification struct {
	Message       string    `json:"message"`
	Severity      Severity  `json:"severity"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier is the single notification channel. Implementations must not
// block the caller for long and never report failures back to it.
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message string, severity Severity)

func (f Func) Notify(ctx context.Context, message string, severity Severity) {
	f(ctx, message, severity)
}

// New builds a Notification stamped with the current time and the
// correlation ID carried by ctx.
func New(ctx context.Context, message string, severity Severity) Notification {
	return Notification{
		Message:       message,
		Severity:      severity,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		At:            time.Now().UTC(),
	}
}

// LogNotifier writes every notification as a structured log line. Errors are
// logged at warn level since they describe a remote failure, not our own.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, message string, severity Severity) {
	level := slog.LevelInfo
	if severity == SeverityError {
		level = slog.LevelWarn
	}
	logger.WithContext(ctx, n.logger).Log(ctx, level, "notification",
		slog.String("severity", string(severity)),
		slog.String("message", message),
	)
}

// Multi fans a notification out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string, severity Severity) {
	for _, n := range m {
		n.Notify(ctx, message, severity)
	}
}
