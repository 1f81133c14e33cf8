// debug_log.go - Structured logging gated by the TUNE_DEBUG environment variable.

package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// tuneDebugEnabled caches the TUNE_DEBUG environment variable at init time
var tuneDebugEnabled = envFlag("TUNE_DEBUG")

var logger = newLogger(os.Stderr, tuneDebugEnabled)

func envFlag(name string) bool {
	value := strings.ToLower(os.Getenv(name))
	return value == "1" || value == "true" || value == "yes"
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// setLogLevel rebuilds the package logger from the config file's log_level.
func setLogLevel(name string) {
	var level slog.Level
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	case "", "warn", "warning":
		level = slog.LevelWarn
	default:
		logger.Warn("unknown log level", "level", name)
		return
	}
	if tuneDebugEnabled {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
