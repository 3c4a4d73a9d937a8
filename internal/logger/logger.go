// Package logger provides the structured logging facade used throughout
// the pipeline runtime: a thin wrapper over zap.SugaredLogger exposing the
// same package-level convenience functions (Debug/Info/Warn/Error/Fatal)
// and SetDefaultLogger hook the rest of the codebase is written against,
// so call sites never touch zap directly.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger; its component tag and minimum level
// are fixed when it is built.
type Logger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// Level mirrors zapcore's level so callers configuring a Logger don't need
// to import zap directly.
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
	LevelFatal = zapcore.FatalLevel
)

// NewLogger builds a Logger tagged with component, writing JSON-encoded
// entries to stdout (and additionally to filePath when enableFile is
// true) at minimum level level.
func NewLogger(component string, level Level, enableFile bool, filePath string) (*Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if enableFile && filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(writers...),
		level,
	)
	base := zap.New(core).With(zap.String("component", component))
	return &Logger{sugar: base.Sugar(), base: base}, nil
}

// SetLevel is a no-op placeholder retained for call-site symmetry with the
// constructor; level is fixed at construction since zap cores are
// immutable once built. Reconfiguring live requires building a new Logger
// and calling SetDefaultLogger.
func (l *Logger) SetLevel(Level) {}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// With returns a Logger with the given key/value pairs attached to every
// subsequent entry, used to bind pipeline/worker_id/plugin context once
// per worker instead of repeating it at every call site.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), base: l.base}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

var defaultLogger *Logger

func init() {
	l, err := NewLogger("pipeline", LevelInfo, false, "")
	if err != nil {
		panic(err)
	}
	defaultLogger = l
}

// SetDefaultLogger replaces the package-level default logger that the
// package-level functions and With write through.
func SetDefaultLogger(l *Logger) {
	defaultLogger = l
}

func Debug(msg string, keysAndValues ...interface{}) { defaultLogger.Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...interface{})  { defaultLogger.Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...interface{})  { defaultLogger.Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...interface{}) { defaultLogger.Error(msg, keysAndValues...) }
func Fatal(msg string, keysAndValues ...interface{}) { defaultLogger.Fatal(msg, keysAndValues...) }

// With binds keysAndValues onto the default logger, returning a derived
// Logger for scoped use (e.g. per-pipeline, per-worker context).
func With(keysAndValues ...interface{}) *Logger {
	return defaultLogger.With(keysAndValues...)
}
