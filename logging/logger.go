/*
Package logging provides component-scoped structured logging over zap.

PURPOSE:
  Every package logs through a *Logger carrying a component name
  ("finance", "storage", "http"), so a line can always be traced back to
  the subsystem that wrote it. Production output is JSON on stdout, with
  an optional JSON file tee. Development output is the zap console format.

CONFIGURATION:
  Level:       debug | info | warn | error (default info)
  File:        optional path; lines go to stdout AND the file
  Development: human-readable console encoder

USAGE:
  logger, err := logging.New(logging.Config{Level: "info", Component: "app"})
  financeLog := logger.WithComponent(logging.ComponentFinance)
  financeLog.Info("transaction created", zap.String(logging.FieldRecordID, id))

SEE ALSO:
  - middleware.go: Request logging for chi
  - fields.go: Field and component names
*/
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with a component name.
type Logger struct {
	*zap.Logger
	root      *zap.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level       string
	File        string
	Development bool
	Component   string
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{Level: "info", Component: ComponentApp}
}

// New builds a logger writing to stdout and, when configured, a file.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEnc := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stdout), level)}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}

	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	return NewFromCore(zapcore.NewTee(cores...), component), nil
}

// NewFromCore wraps an existing core. Tests use it with zaptest/observer.
func NewFromCore(core zapcore.Core, component string) *Logger {
	root := zap.New(core, zap.AddCaller())
	return &Logger{
		Logger:    root.With(zap.String(FieldComponent, component)),
		root:      root,
		component: component,
	}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), root: zap.NewNop(), component: "nop"}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// With returns a logger with extra fields, keeping the component.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		Logger:    l.Logger.With(fields...),
		root:      l.root,
		component: l.component,
	}
}

// WithComponent returns a logger for another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.root.With(zap.String(FieldComponent, component)),
		root:      l.root,
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// =============================================================================
// CONTEXT
// =============================================================================

type contextKey struct{}

// WithContext stores the logger in ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return OrNop(fallback)
}
