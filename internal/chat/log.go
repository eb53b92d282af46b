package chat

import (
	"context"
	"log/slog"

	"corsair/internal/logging"
)

// LogAnnouncer writes announcements to the logger instead of a chat
// connection. It is the default when no platform integration is wired in.
type LogAnnouncer struct {
	logger *slog.Logger
}

// NewLogAnnouncer returns an announcer that logs each message.
func NewLogAnnouncer(logger *slog.Logger) *LogAnnouncer {
	return &LogAnnouncer{logger: logging.NewComponentLogger(logger, "chat")}
}

func (a *LogAnnouncer) Announce(_ context.Context, message string) error {
	a.logger.Info("announce", logging.String("message", message))
	return nil
}

// StaticAudience reports a fixed viewer count. Useful for tests and for
// deployments where audience size is configured rather than observed.
type StaticAudience int

func (a StaticAudience) ViewerCount(context.Context) (int, error) {
	return int(a), nil
}
