package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger. JSON output when LOG_FORMAT is
// "json", text otherwise; every record carries the component name so the
// gateway and the worker can be told apart in shared log streams.
func NewLogger(cfg *Config, component string) *slog.Logger {
	format := ""
	if cfg != nil {
		format = cfg.LogFormat
	}
	return newLogger(os.Stdout, format, component)
}

func newLogger(w io.Writer, format, component string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("component", component)
}
