package logger

import (
	"webpilot/internal/application/port/output"

	"go.uber.org/zap"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

// LoggerAdapter exposes a zap sugared logger through the LoggerPort shape.
type LoggerAdapter struct {
	sugar *zap.SugaredLogger
	path  string
}

func NewLoggerAdapter(cfg Config, taskName string) (*LoggerAdapter, error) {
	core, path, err := newCore(cfg, taskName)
	if err != nil {
		return nil, err
	}
	base := zap.New(core, zap.AddStacktrace(zap.ErrorLevel)).Named("webpilot")
	return &LoggerAdapter{sugar: base.Sugar(), path: path}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *LoggerAdapter {
	return &LoggerAdapter{sugar: zap.NewNop().Sugar()}
}

// NewFromZap wraps an existing zap logger, mostly for tests using zaptest/observer.
func NewFromZap(l *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{sugar: l.Sugar()}
}

// Path is the JSON log file of the run, empty when file output is off.
func (l *LoggerAdapter) Path() string {
	return l.path
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{sugar: l.sugar.With(key, value), path: l.path}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &LoggerAdapter{sugar: l.sugar.With(args...), path: l.path}
}

// Close flushes buffered entries. Sync errors on terminals are not actionable.
func (l *LoggerAdapter) Close() error {
	_ = l.sugar.Sync()
	return nil
}
