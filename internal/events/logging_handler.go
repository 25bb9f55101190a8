package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
)

// LoggingHandler writes an info line for every task move and deletion.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With(slog.String("component", "task_event_log"))}
}

// Name implements Named.
func (h *LoggingHandler) Name() string { return "logging" }

// HandleEvent implements Handler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event domain.Event) error {
	log := logger.FromContextFor(ctx, h.logger, "task_event_log")

	switch e := event.(type) {
	case domain.TaskStatusChanged:
		log.Info("task moved",
			slog.String("task_id", e.TaskID.String()),
			slog.String("board_id", e.BoardID.String()),
			slog.String("from", e.From.String()),
			slog.String("to", e.To.String()),
			slog.Time("changed_at", e.ChangedAt))
	case domain.TaskDeleted:
		log.Info("task deleted",
			slog.String("task_id", e.TaskID.String()),
			slog.String("board_id", e.BoardID.String()),
			slog.String("status", e.Status.String()))
	default:
		log.Debug("ignoring event", slog.String("event_name", event.EventName()))
	}
	return nil
}
