package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// previewRunes is how much of a prompt is logged.
const previewRunes = 40

// TaskMetrics summarizes one finished prompt task for the log.
// It implements zapcore.ObjectMarshaler so it nests as a single object.
type TaskMetrics struct {
	Status    string
	Path      string
	Bytes     int64
	Duration  time.Duration
	ErrorKind string
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m TaskMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("status", m.Status)
	if m.Path != "" {
		enc.AddString("path", m.Path)
	}
	enc.AddInt64("bytes", m.Bytes)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())
	if m.ErrorKind != "" {
		enc.AddString("error_kind", m.ErrorKind)
	}
	return nil
}

// TaskFields nests metrics under the "outcome" key.
//
//	logger.Info("task finished", logging.TaskFields(metrics))
func TaskFields(metrics TaskMetrics) zap.Field {
	return zap.Object("outcome", metrics)
}

// PromptPreview logs the start of a prompt; prompts can be long.
func PromptPreview(prompt string) zap.Field {
	runes := []rune(prompt)
	if len(runes) > previewRunes {
		return zap.String("prompt_preview", string(runes[:previewRunes])+"…")
	}
	return zap.String("prompt_preview", prompt)
}
