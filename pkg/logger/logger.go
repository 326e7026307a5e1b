// Package logger provides structured logging built on zap.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger so call sites can pass loosely typed
// key/value pairs.
type Logger struct {
	base *zap.Logger
	s    *zap.SugaredLogger
}

// New creates a JSON logger at the given level.
func New(level string) (*Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(parseLevel(level)),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{base: base, s: base.Sugar()}, nil
}

// NewDevelopment creates a console logger with colored levels.
func NewDevelopment() (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{base: base, s: base.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, s: base.Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	s := l.s.With(kv...)
	return &Logger{base: s.Desugar(), s: s}
}

func (l *Logger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.base.Sync() }

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

var global = NewNop()

// Global returns the process-wide logger.
func Global() *Logger { return global }

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *Logger) { global = l }
