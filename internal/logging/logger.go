// Package logging provides the container's slog constructors. Components
// never log through a package-global logger; they receive an injected
// *slog.Logger and fall back to NewNop when given nil.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a configured application logger writing to stderr.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger
}
