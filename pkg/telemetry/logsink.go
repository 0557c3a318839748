package telemetry

import (
	"context"
	"log/slog"

	"github.com/routelens/routelens/pkg/emitter"
)

// LogSink writes routed-request events to a structured logger. It is the
// fallback transport when no OTLP endpoint is configured and doubles as a
// local debugging aid.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink returns a sink logging at debug level. A nil logger falls back
// to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: slog.LevelDebug}
}

// Enabled reports whether the logger would accept the record.
func (s *LogSink) Enabled(ctx context.Context) bool {
	return s.logger.Enabled(ctx, s.level)
}

// Write logs the event as one record.
func (s *LogSink) Write(ctx context.Context, eventID int, fields [emitter.FieldCount]string, truncatedAt int) {
	s.logger.Log(ctx, s.level, "request routed",
		"event_id", eventID,
		"method", fields[emitter.FieldMethod],
		"path", fields[emitter.FieldPath],
		"request_id", fields[emitter.FieldRequestID],
		"arguments", fields[emitter.FieldArguments],
		"target", fields[emitter.FieldTargetName],
		"path_base", fields[emitter.FieldPathBase],
		"truncated_at", truncatedAt,
	)
}
