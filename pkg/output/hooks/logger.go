package hooks

import (
	"context"
	"log/slog"

	"github.com/waftester/reconsuite/pkg/output/dispatcher"
	"github.com/waftester/reconsuite/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LoggerHook)(nil)

// LoggerHook writes scan lifecycle events to a structured logger.
// Successful categories log at debug, failed ones at warn.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook creates a LoggerHook. A nil logger means slog.Default().
func NewLoggerHook(l *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(l)}
}

// OnEvent logs one event.
func (h *LoggerHook) OnEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.ScanStarted:
		h.logger.InfoContext(ctx, "scan started",
			slog.String("scan_id", e.ScanID()),
			slog.String("domain", e.Domain),
			slog.Int("categories", len(e.Categories)))
	case *events.CategorySettled:
		attrs := []any{
			slog.String("scan_id", e.ScanID()),
			slog.String("category", e.Category.String()),
			slog.Int("attempts", e.Attempts),
			slog.Int64("duration_ms", e.DurationMs),
		}
		if e.OK {
			h.logger.DebugContext(ctx, "category settled", append(attrs, slog.Int("items", e.Items))...)
			return nil
		}
		h.logger.WarnContext(ctx, "category failed", append(attrs,
			slog.String("kind", e.Kind),
			slog.String("error", e.Error))...)
	case *events.ScanSettled:
		level := slog.LevelInfo
		if e.AllFailed() {
			level = slog.LevelWarn
		}
		failed := make([]string, len(e.Failed))
		for i, c := range e.Failed {
			failed[i] = c.String()
		}
		h.logger.Log(ctx, level, "scan settled",
			slog.String("scan_id", e.ScanID()),
			slog.String("domain", e.Domain),
			slog.Int("succeeded", e.Succeeded),
			slog.Any("failed", failed),
			slog.Int64("duration_ms", e.DurationMs))
	}
	return nil
}

// EventTypes returns nil: the logger receives every event.
func (h *LoggerHook) EventTypes() []events.EventType { return nil }
