// Package logging builds the slog loggers handed to connections, retry
// strategies and commands. Nothing here is global: callers pass the logger on.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects level, format and destination
type Config struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is text or json. Empty means text.
	Format string `mapstructure:"format" yaml:"format"`
	// Output is stderr, stdout or a file path. Empty means stderr.
	Output string `mapstructure:"output" yaml:"output,omitempty"`
	// Attrs are added to every record
	Attrs map[string]string `mapstructure:"attrs" yaml:"attrs,omitempty"`
}

// ParseLevel accepts the slog level names, case-insensitively, with
// optional offsets such as "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New builds a logger writing to w. A nil w resolves cfg.Output. The
// returned close function releases an opened file and is never nil.
func New(cfg Config, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	if w == nil {
		switch cfg.Output {
		case "", "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log output: %w", err)
			}
			w, closeFn = f, f.Close
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if len(cfg.Attrs) > 0 {
		attrs := make([]slog.Attr, 0, len(cfg.Attrs))
		for k, v := range cfg.Attrs {
			attrs = append(attrs, slog.String(k, v))
		}
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler), closeFn, nil
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
