package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the logger instead of sending them.
// It is meant for local development only.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("email not sent, log driver active",
		"purpose", msg.Purpose,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
