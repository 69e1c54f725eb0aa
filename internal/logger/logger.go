package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Ensure zapLogger satisfies Logger.
var _ Logger = (*zapLogger)(nil)

// Debug logs at DebugLevel. keysAndValues are alternating key/value pairs.
func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at InfoLevel.
func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at WarnLevel.
func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at ErrorLevel.
func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// ----------------------------------------------------------------------------

// RunLogger is the logger of a single backup run. It tees every entry into
// the run's transcript file, so orchestrator events, hook output and the
// dump tool's own output all end up in the one file that gets scanned for
// warnings and mailed out afterwards.
type RunLogger struct {
	zapLogger
	transcript *os.File
}

// NewRun opens the transcript at path and returns a logger writing both to
// stderr and into the transcript. An existing transcript from an earlier
// attempt on the same date is truncated: the file must describe this run
// only, since its content decides the warning verdict and the mail body.
func NewRun(path string) (*RunLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript %q: %w", path, err)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileCfg := zap.NewDevelopmentEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(fileCfg), zapcore.AddSync(f), zap.InfoLevel),
	)

	return &RunLogger{
		zapLogger:  zapLogger{sugar: zap.New(core).Sugar()},
		transcript: f,
	}, nil
}

// Transcript exposes the open transcript file so subprocess stdout/stderr
// can be pointed at it directly.
func (l *RunLogger) Transcript() *os.File {
	return l.transcript
}

// Sync flushes any buffered log entries.
func (l *RunLogger) Sync() {
	_ = l.sugar.Sync()
}

// Close flushes and closes the transcript. Call at the end of the run.
func (l *RunLogger) Close() error {
	l.Sync()
	return l.transcript.Close()
}

// NewConsole returns a stderr-only Logger for the startup path that runs
// before a transcript exists.
func NewConsole() Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	zapLog, err := cfg.Build()
	if err != nil {
		// The development config cannot fail to build; fall back to a
		// no-op logger just in case.
		zapLog = zap.NewNop()
	}
	return &zapLogger{sugar: zapLog.Sugar()}
}
