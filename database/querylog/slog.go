package querylog

import (
	"context"
	"io"
	"log/slog"
)

// SlogEngine writes records to a structured logger
type SlogEngine struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogEngine creates an engine logging at level. A nil logger discards.
func NewSlogEngine(logger *slog.Logger, level slog.Level) *SlogEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SlogEngine{logger: logger, level: level}
}

// Log emits one record per statement. Failed statements log at error level.
func (e *SlogEngine) Log(ctx context.Context, q LoggedQuery) error {
	level := e.level
	attrs := []slog.Attr{
		slog.String("query", q.Interpolate()),
		slog.Duration("took", q.Took),
		slog.Int64("rows", q.NumRows),
	}
	if q.Connection != "" {
		attrs = append(attrs, slog.String("connection", q.Connection))
	}
	if q.Err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", q.Err.Error()))
	}
	e.logger.LogAttrs(ctx, level, "query", attrs...)
	return nil
}
