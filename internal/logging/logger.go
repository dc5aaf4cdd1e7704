package logging

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging on top of zap
type Logger struct {
	z *zap.Logger
}

// NewLogger creates a new logger.
//
// level is one of debug, info, warn, error (unknown values fall back to
// info); format is "json" or "text"; output is "stdout", "stderr" or a file
// path.
func NewLogger(level, format, output string) *Logger {
	logger, err := Build(level, format, output)
	if err != nil {
		fallback, _ := Build(level, format, "stdout")
		fallback.Warn("Failed to open log output, using stdout", map[string]interface{}{
			"output": output,
			"error":  err.Error(),
		})
		return fallback
	}
	return logger
}

// Build is NewLogger that reports configuration errors.
func Build(level, format, output string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	if format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if output == "" {
		output = "stdout"
	}
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{z: z}, nil
}

// NewNop returns a logger that discards everything; used by tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.z
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{z: l.z.With(toZap(fields)...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.z.Sync()
}

func toZap(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	l.z.Debug(message, toZap(fields)...)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	l.z.Info(message, toZap(fields)...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	l.z.Warn(message, toZap(fields)...)
}

// Error logs an error message
func (l *Logger) Error(message string, err error, fields map[string]interface{}) {
	if l == nil {
		return
	}
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(message, zf...)
}
