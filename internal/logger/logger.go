// Package logger builds the process logger and request-scoped children.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/moamenhredeen/oasgate/internal/config"
)

// New creates the root logger described by cfg, writing to stderr
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates the root logger writing to w
func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "oasgate").Logger()
}

// Ctx returns the logger stored in ctx, or a disabled logger
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithRequest stores a child logger carrying request fields in ctx
func WithRequest(ctx context.Context, base zerolog.Logger, requestID, method, path string) context.Context {
	l := base.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()
	return l.WithContext(ctx)
}
