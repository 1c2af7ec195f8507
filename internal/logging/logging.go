package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a *slog.Logger at the given level ("debug", "info", "warn",
// "error"; unrecognized falls back to info), installs it as the default, and
// returns it.
func Setup(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
