/**
 * @description
 * Structured logger for the price tracker.
 * Info messages go to stdout and errors to stderr so hosting platforms label them correctly.
 *
 * @dependencies
 * - go.uber.org/zap
 *
 * @notes
 * - Printf-style helpers keep call sites short; L() exposes the zap logger when needed.
 * - Console encoding in development, JSON everywhere else.
 */

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

func init() {
	base = build(os.Stdout, os.Stderr, false)
}

// Setup rebuilds the global logger; dev switches to colored console output at debug level
func Setup(dev bool) {
	l := build(os.Stdout, os.Stderr, dev)

	mu.Lock()
	old := base
	base = l
	mu.Unlock()

	_ = old.Sync()
}

// New creates a logger that writes every level to w
func New(w io.Writer) *zap.Logger {
	return build(w, w, false)
}

// Replace swaps the global logger and returns a restore func (tests)
func Replace(l *zap.Logger) func() {
	mu.Lock()
	old := base
	base = l
	mu.Unlock()

	return func() {
		mu.Lock()
		base = old
		mu.Unlock()
	}
}

// L returns the global zap logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Info logs an info message to stdout
func Info(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

// Warn logs a warning to stdout
func Warn(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

// Error logs an error message to stderr
func Error(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

// Fatal logs an error and exits
func Fatal(format string, v ...interface{}) {
	L().Fatal(fmt.Sprintf(format, v...))
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}

func build(out, errOut io.Writer, dev bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if dev {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	minLevel := zapcore.InfoLevel
	if dev {
		minLevel = zapcore.DebugLevel
	}

	infoLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l < zapcore.ErrorLevel
	})
	errorLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(out), infoLevels),
		zapcore.NewCore(enc, zapcore.AddSync(errOut), errorLevels),
	)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}
