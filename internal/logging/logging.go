// Package logging wires log/slog for the CLI: a rotated file handler under
// the XDG state directory plus optional console output when verbose is set.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Dir     string // directory for ytscout.log; empty disables file logging
	Verbose bool   // mirror debug-level records to stderr
	Quiet   bool   // suppress console output entirely
}

// New builds the application logger. File output rotates via lumberjack so a
// long-lived install never grows unbounded.
func New(opts Options) *slog.Logger {
	var writers []io.Writer

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, "ytscout.log"),
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			})
		}
	}
	if opts.Verbose && !opts.Quiet {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 0 {
		return NewNop()
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
