package logger

import (
	"log/slog"
	"os"
	"strings"
)

var Logger = slog.Default()

// New builds a text logger on stderr, leaving stdout to command output.
// DEBUG=true forces debug level.
func New(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Init sets the package and process-wide default logger.
func Init(level string) *slog.Logger {
	Logger = New(level)
	slog.SetDefault(Logger)
	return Logger
}

func parseLevel(level string) slog.Level {
	if os.Getenv("DEBUG") == "true" {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}
