package monitor

import (
	"context"
	"log/slog"
)

// LogNotifier delivers alerts to the structured log. Desktop or chat
// delivery lives outside the core; this is the default collaborator.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, title, message string) error {
	n.Logger.Info("alert", "title", title, "message", message)
	return nil
}
