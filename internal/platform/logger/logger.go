package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. Text output keeps local development
// readable; structured keys carry request and entity IDs.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
