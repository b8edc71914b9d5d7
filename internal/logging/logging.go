// Package logging configures the process-wide slog logger.
//
// Console output goes to stderr through tint so that stdout stays reserved
// for command results (tables, JSON). When a log file is configured, a second
// handler writes every debug record to a rotating file via lumberjack.
package logging

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls Setup.
type Options struct {
	// Verbose lowers the console level to Debug.
	Verbose bool

	// Quiet raises the console level to Error. Used for JSON output so that
	// informational lines do not interleave with machine-readable output.
	Quiet bool

	// NoColor disables ANSI colours on the console handler.
	NoColor bool

	// FilePath enables the rotating file handler when non-empty.
	FilePath string

	// Console overrides the console writer. Defaults to os.Stderr.
	Console io.Writer
}

// Setup installs the default slog logger and redirects the standard log
// package into it. The returned function closes the log file, if any.
func Setup(opts Options) (func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := slog.LevelInfo
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelError
	}

	handler := &MultiLevelHandler{
		consoleHandler: tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		}),
	}

	closer := func() error { return nil }
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			slog.SetDefault(slog.New(handler))
			return closer, err
		}
		lumber := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			Compress:   true,
		}
		handler.fileHandler = tint.NewHandler(lumber, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
		closer = lumber.Close
	}

	slog.SetDefault(slog.New(handler))

	// overwrite standard log so it's always redirected to slog, in case some deep dep is using it
	lw := &slogWriter{}
	log.SetFlags(0)
	log.SetOutput(lw)

	return closer, nil
}

// MultiLevelHandler fans records out to a console handler and an optional
// file handler, each filtering by its own level.
type MultiLevelHandler struct {
	consoleHandler slog.Handler
	fileHandler    slog.Handler
}

func (h *MultiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.consoleHandler.Enabled(ctx, level) {
		return true
	}
	return h.fileHandler != nil && h.fileHandler.Enabled(ctx, level)
}

func (h *MultiLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.consoleHandler.Enabled(ctx, r.Level) {
		errs = append(errs, h.consoleHandler.Handle(ctx, r.Clone()))
	}
	if h.fileHandler != nil && h.fileHandler.Enabled(ctx, r.Level) {
		errs = append(errs, h.fileHandler.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := &MultiLevelHandler{
		consoleHandler: h.consoleHandler.WithAttrs(attrs),
	}
	if h.fileHandler != nil {
		newHandler.fileHandler = h.fileHandler.WithAttrs(attrs)
	}
	return newHandler
}

func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	newHandler := &MultiLevelHandler{
		consoleHandler: h.consoleHandler.WithGroup(name),
	}
	if h.fileHandler != nil {
		newHandler.fileHandler = h.fileHandler.WithGroup(name)
	}
	return newHandler
}

// slogWriter adapts the standard log package to slog.
type slogWriter struct{}

func (w *slogWriter) Write(p []byte) (int, error) {
	slog.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
