// Package logging owns the slog logger lifecycle and supports runtime
// reconfiguration of level, format, and output without restarting.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level    string `json:"level"`
	Format   string `json:"format"`
	FilePath string `json:"file_path,omitempty"`
}

// SwappableHandler is a thread-safe slog.Handler that delegates to an inner
// handler which can be atomically swapped at runtime.
type SwappableHandler struct {
	inner atomic.Pointer[slog.Handler]
}

// NewSwappableHandler creates a SwappableHandler wrapping h.
func NewSwappableHandler(h slog.Handler) *SwappableHandler {
	s := &SwappableHandler{}
	s.inner.Store(&h)
	return s
}

// Swap replaces the inner handler.
func (s *SwappableHandler) Swap(h slog.Handler) {
	s.inner.Store(&h)
}

// Enabled delegates to the inner handler.
func (s *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.inner.Load()).Enabled(ctx, level)
}

// Handle delegates to the inner handler.
func (s *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	return (*s.inner.Load()).Handle(ctx, r)
}

// WithAttrs returns a new SwappableHandler whose inner handler has the attrs.
func (s *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	inner := (*s.inner.Load()).WithAttrs(attrs)
	return NewSwappableHandler(inner)
}

// WithGroup returns a new SwappableHandler whose inner handler has the group.
func (s *SwappableHandler) WithGroup(name string) slog.Handler {
	inner := (*s.inner.Load()).WithGroup(name)
	return NewSwappableHandler(inner)
}

// Manager owns the logger lifecycle and supports runtime reconfiguration.
type Manager struct {
	levelVar *slog.LevelVar
	handler  *SwappableHandler
	config   Config
	mu       sync.Mutex
	closer   io.Closer // lumberjack writer, if any
}

// NewManager creates a Manager and returns it along with a ready-to-use logger.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(parseLevel(cfg.Level))

	writer, closer := buildWriter(cfg)
	inner := buildHandler(writer, lvl, cfg.Format)
	handler := NewSwappableHandler(inner)

	m := &Manager{
		levelVar: lvl,
		handler:  handler,
		config:   cfg,
		closer:   closer,
	}

	logger := slog.New(handler)
	return m, logger
}

// Reconfigure applies a new configuration at runtime. Level-only changes
// are instant via LevelVar; format or output changes rebuild the handler.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(parseLevel(cfg.Level))

	if cfg.Format == m.config.Format && cfg.FilePath == m.config.FilePath {
		m.config = cfg
		return
	}

	if m.closer != nil {
		_ = m.closer.Close()
		m.closer = nil
	}

	writer, closer := buildWriter(cfg)
	m.handler.Swap(buildHandler(writer, m.levelVar, cfg.Format))
	m.closer = closer
	m.config = cfg
}

// Close releases the file writer, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

func buildHandler(w io.Writer, lvl slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
