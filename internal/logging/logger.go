// Package logging wires structured logging via log/slog, writing to
// both stdout and a rotated file through natefinch/lumberjack, matching
// chycee-cryptoGo's internal/infra/logger.go (spec §7 [ADD]).
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and rotated file destination.
type Config struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// New builds a JSON slog.Logger writing to stdout and cfg.File.
// A blank cfg.File disables rotation and logs to stdout only.
func New(cfg Config) *slog.Logger {
	var writer io.Writer = os.Stdout

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, fileLogger)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	return slog.New(slog.NewJSONHandler(writer, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
