// Package logger wraps slog for structured service logging. Protocol
// decisions are recorded in the audit trail, not here; log lines never
// carry codes, key material or code digests.
package logger

import (
	"log/slog"
	"os"
)

// Logger is the application-wide structured logger.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing text records to stdout at the given
// slog level.
func New(level int) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(level)})),
	}
}

// Fatal is equivalent to Error followed by os.Exit(1).
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
