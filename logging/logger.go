// Package logging provides the structured logger used across imagine.
//
// Progress for the user goes to the progress board; this logger carries the
// diagnostic trail. It is silent unless a log file or debug console output
// is requested.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts secrets from every field before it is
// written.
//
// Example:
//
//	logger, err := logging.New(logging.Options{Level: logging.InfoLevel, FilePath: "imagine.log"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info("run started", zap.Int("prompts", 3))
type Logger struct {
	zap *zap.Logger
}

// Options selects where log output goes.
type Options struct {
	// Level is the minimum level written to every output
	Level zapcore.Level

	// FilePath receives JSON entries with rotation ("" = no file)
	FilePath string

	// File tunes rotation of FilePath (zero value = defaults)
	File FileWriterConfig

	// Console receives human-readable entries (nil = no console output)
	Console io.Writer
}

// New builds a Logger from opts. With neither a file nor a console it
// returns a logger that discards everything.
func New(opts Options) (*Logger, error) {
	var fileWriter, consoleWriter zapcore.WriteSyncer

	if opts.FilePath != "" {
		if dir := filepath.Dir(opts.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		fileWriter = NewFileWriterWithConfig(opts.FilePath, opts.File)
	}
	if opts.Console != nil {
		consoleWriter = zapcore.Lock(zapcore.AddSync(opts.Console))
	}

	core := NewTeeCore(opts.Level, consoleWriter, fileWriter)
	return &Logger{zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// NewFromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{zap: z.WithOptions(zap.AddCallerSkip(1))}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// With returns a child logger that adds fields to every entry.
//
//	taskLogger := logger.With(zap.Int("task", 2), logging.PromptPreview(prompt))
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(redactFields(fields)...)}
}

// Named adds a component name to the logger.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name)}
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// redactFields filters sensitive data from field values before every write.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}

	switch field.Type {
	case zapcore.StringType:
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	case zapcore.ErrorType:
		// error text from the API can echo request headers
		if err, ok := field.Interface.(error); ok && ContainsSensitiveData(err.Error()) {
			return zap.String(field.Key, RedactSensitiveData(err.Error()))
		}
	}

	return field
}
