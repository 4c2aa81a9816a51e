package telemetry

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewSlogHandler returns the colored handler used by every binary.
func NewSlogHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})
}

// InitSlog sets the default logger to write to stderr, `attrs` are attached to every line.
func InitSlog(verbose bool, attrs ...any) {
	logger := slog.New(NewSlogHandler(os.Stderr, verbose)).With(attrs...)
	slog.SetDefault(logger)
}
