package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTPSMS indicates a one-time code delivered to a mobile number.
	KindOTPSMS = "otp_sms"
	// KindVerificationEmail indicates an email verification link.
	KindVerificationEmail = "verification_email"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems (SMS gateway, mail
// relay). Implementations own their own timeouts.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// logger. The code body is intentionally not logged.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message metadata to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification dispatched", "kind", message.Kind, "destination", message.Destination)
	return nil
}
