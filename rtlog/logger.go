// Package rtlog provides structured logging for the sandbox runtime,
// built on the standard library's log/slog, mirroring the teacher's
// logging package: a swappable default logger, text/JSON output, and
// context-scoped loggers.
package rtlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

type ctxKey struct{}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level.
	Level slog.Level
	// Format is "text" or "json".
	Format string
	// Output is the log output destination; defaults to os.Stderr.
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// NewLogger creates a new structured logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// SetDefault sets the default global logger.
func SetDefault(logger *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the default global logger.
func Default() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithChildPID returns a logger annotated with the guest child's PID.
func WithChildPID(logger *slog.Logger, pid int) *slog.Logger {
	return logger.With(slog.Int("child_pid", pid))
}

// WithOperation returns a logger annotated with the wire operation name.
func WithOperation(logger *slog.Logger, op string) *slog.Logger {
	return logger.With(slog.String("operation", op))
}

// ContextWithLogger attaches logger to ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger attached to ctx, or Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ParseLevel parses a level string ("debug", "info", "warn", "error").
// Unrecognized values map to slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Reporter adapts the default logger to backend.ErrorReporter, wiring the
// guest-language diagnostics hook of §6 into structured logging.
type Reporter struct {
	Logger *slog.Logger
}

// ReportError implements backend.ErrorReporter.
func (r Reporter) ReportError(format string, args ...any) {
	l := r.Logger
	if l == nil {
		l = Default()
	}
	l.Warn("guest diagnostic", slog.String("message", fmt.Sprintf(format, args...)))
}
