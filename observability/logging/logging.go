// Package logging adapts log/slog to the query and search event hooks.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/deicod/ermsearch/orm/runtime"
)

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewQueryLogger emits one record per executed query. Failed queries are logged at error
// level, everything else at debug.
func NewQueryLogger(logger *slog.Logger) runtime.QueryLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return runtime.QueryLoggerFunc(func(ctx context.Context, entry runtime.QueryLog) {
		attrs := []slog.Attr{
			slog.String("operation", string(entry.Operation)),
			slog.String("table", entry.Table),
			slog.String("sql", entry.SQL),
			slog.Int("arg_count", len(entry.Args)),
			slog.Duration("duration", entry.Duration),
		}
		if entry.CorrelationID != "" {
			attrs = append(attrs, slog.String("correlation_id", entry.CorrelationID))
		}
		level := slog.LevelDebug
		if entry.Err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", entry.Err))
		}
		logger.LogAttrs(ctx, level, "query", attrs...)
	})
}
