// Package rlog is a thin log/slog wrapper, grounded on the teacher's
// util.InitSlog: level is chosen from the LOG_LEVEL environment
// variable, handler is a slog.TextHandler over stderr. It adds one
// thing the teacher doesn't need: a Severe helper for spec.md section
// 7's "invariant errors are logged at severe level" requirement, since
// slog has no built-in level above Error.
package rlog

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// LevelSevere sits above slog.LevelError: invariant failures are bugs,
// not ordinary error-level conditions, and should stand out in logs
// filtered at the default error level.
const LevelSevere = slog.Level(12)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init configures the package logger from the LOG_LEVEL environment
// variable (debug, info, warn, error, severe), matching the teacher's
// InitSlog convention. Call it once at program startup; the zero-value
// logger (info level) works until then.
func Init() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return
	}
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "severe":
		level = LevelSevere
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { logger.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { logger.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { logger.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { logger.Error(msg, args...) }

// Severe logs an internal-consistency failure: a bug, not a user-facing
// error, per spec.md section 7 ("invariant errors... logged at severe
// level by the store").
func Severe(msg string, args ...any) {
	logger.Log(context.Background(), LevelSevere, msg, args...)
}
