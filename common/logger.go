package common

import (
	"io"
	"log/slog"
	"strings"
)

// SetupLogger assigns a new default slog.Logger writing to `wr` at `level` ("debug", "info", "warn", "error")
// using the "text" or "json" handler named by `format`.
func SetupLogger(wr io.Writer, level string, format string) *slog.Logger {

	var log_level slog.Level

	switch strings.ToLower(level) {
	case "debug":
		log_level = slog.LevelDebug
	case "warn":
		log_level = slog.LevelWarn
	case "error":
		log_level = slog.LevelError
	default:
		log_level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: log_level,
	}

	var handler slog.Handler

	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(wr, opts)
	default:
		handler = slog.NewTextHandler(wr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
