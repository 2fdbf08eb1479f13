package utils

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

// GetLogger returns the process-wide structured logger. The level comes from LOG_LEVEL.
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		opts := &slog.HandlerOptions{Level: parseLevel(GetEnv("LOG_LEVEL", "info"))}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	})
	return logger
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// CreateFolder creates folderPath and any missing parents.
func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}
