package graft

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel selects how verbose the diagnostic output is. It has no effect
// on hooking behavior.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) zapLevel() (zapcore.Level, error) {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", string(l))
	}
}

// ParseLogLevel returns the LogLevel named by text, ignoring case.
func ParseLogLevel(text string) (LogLevel, error) {
	l := LogLevel(strings.ToLower(text))
	if _, err := l.zapLevel(); err != nil {
		return "", err
	}
	return l, nil
}

var (
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	logMu     sync.RWMutex
	logger    = newLogger(stderrSink())
	logCloser io.Closer
)

func stderrSink() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stderr)
}

func newLogger(ws zapcore.WriteSyncer) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, ws, logLevel))
}

// L returns the package logger. Engines without their own logger write
// here.
func L() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetLogLevel changes the verbosity of the package logger at runtime.
func SetLogLevel(l LogLevel) error {
	lv, err := l.zapLevel()
	if err != nil {
		return err
	}
	logLevel.SetLevel(lv)
	return nil
}

// LogToFile redirects diagnostic output to the file at path, appending if
// it exists.
func LogToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	swapSink(zapcore.Lock(f), f)
	return nil
}

// swapSink replaces the logger's output. closer, if non-nil, is closed the
// next time the sink is swapped.
func swapSink(ws zapcore.WriteSyncer, closer io.Closer) {
	logMu.Lock()
	old := logger
	oldCloser := logCloser
	logger = newLogger(ws)
	logCloser = closer
	logMu.Unlock()

	_ = old.Sync()
	if oldCloser != nil {
		_ = oldCloser.Close()
	}
}
