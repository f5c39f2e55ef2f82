// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"investhub/internal/config"
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New builds a logger writing to stdout and, when cfg.File is set, to a
// size-rotated file as well. The returned closer flushes the file.
// POST: the closer is always non-nil
func New(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	out := stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, rotator)
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(h), closer, nil
}

// Setup installs New's logger as the slog default.
func Setup(cfg config.LogConfig, stdout io.Writer) (io.Closer, error) {
	logger, closer, err := New(cfg, stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
