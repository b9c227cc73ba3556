package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-processor/internal/common"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Dir    string // when set, also append to <Dir>/invoice_processor_YYYY-MM-DD.log
	Stdout io.Writer
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("invoice_processor_%s.log", t.Format("2006-01-02"))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
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

// Init builds the process-wide logger, installs it as the slog default and returns it
// together with a close function for the log file (a no-op when Dir is empty).
func Init(cfg Config) (*slog.Logger, func() error, error) {
	var out io.Writer = os.Stdout
	if cfg.Stdout != nil {
		out = cfg.Stdout
	}
	closer := func() error { return nil }

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, closer, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(cfg.Dir, FileName(time.Now()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closer = f.Close
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, closer, nil
}

// WithContext returns the default logger annotated with the request id and
// document found in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	if attrs := common.LogAttrs(ctx); len(attrs) > 0 {
		return slog.Default().With(attrs...)
	}
	return slog.Default()
}
