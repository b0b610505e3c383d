// Package log is the structured logger shared by every rendita binary. It is a
// thin layer over log/slog that tags each record with the component that
// emitted it and carries a request-scoped logger through context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that knows which component it logs for.
type Logger struct {
	*slog.Logger
	component string
}

// Config selects the handler and component of a new Logger. Level is only
// read when Handler is nil.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewHandler builds a text or json handler writing to w.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	return &Logger{Logger: slog.New(handler), component: config.Component}
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a logger for another component sharing the same
// handler and attributes. The component is added per record, so switching it
// never stacks two component attributes.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// Log emits a record at level, tagged with the component.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l.component != "" {
		args = append([]any{FieldComponent, l.component}, args...)
	}
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelWarn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Log(context.Background(), slog.LevelError, msg, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelError, msg, args...)
}

// SetDefault installs logger as the slog default so package-level slog calls
// in the storage and transport packages share its handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
