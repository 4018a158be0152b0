// Package logger builds the service's slog handlers and carries a request
// scoped logger through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

type Config struct {
	Writer io.Writer
	Level  slog.Leveler
	JSON   bool
	// Fluent, when set, receives every record in addition to Writer.
	Fluent *fluent.Fluent
	// FluentTag is appended to the client's tag prefix.
	FluentTag string
}

// New returns a logger writing to cfg.Writer (stdout by default), colored
// text unless JSON is requested.
func New(cfg Config) *slog.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Level == nil {
		cfg.Level = slog.LevelInfo
	}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{Level: cfg.Level})
	} else {
		h = tint.NewHandler(cfg.Writer, &tint.Options{Level: cfg.Level, TimeFormat: "2006-01-02 15:04:05"})
	}
	if cfg.Fluent != nil {
		tag := cfg.FluentTag
		if tag == "" {
			tag = "app"
		}
		h = fanout{h, &fluentHandler{client: cfg.Fluent, tag: tag, level: cfg.Level}}
	}
	return slog.New(h)
}

// ParseLevel maps debug|info|warn|error to a level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
