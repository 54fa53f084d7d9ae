package logging

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log package.
// Buffer is only set for loggers created with NewTestLogger.
type Logger struct {
	*log.Logger
	Buffer *bytes.Buffer
}

var (
	logger *Logger
	once   sync.Once
)

// CreateLogger sets up the process-wide logger. It is safe to call more than once.
func CreateLogger() {
	once.Do(func() {
		logger = New(os.Stderr, os.Getenv("DEBUG") == "1")
	})
}

// New builds a logger writing to w. Debug enables caller and timestamp reporting.
func New(w io.Writer, debug bool) *Logger {
	if !debug {
		base := log.New(w)
		base.SetLevel(log.InfoLevel)
		return &Logger{Logger: base}
	}

	base := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "stashdrop",
	})
	base.SetLevel(log.DebugLevel)
	return &Logger{Logger: base}
}

// NewTestLogger returns a debug-level logger that writes into an in-memory buffer.
func NewTestLogger() *Logger {
	buf := new(bytes.Buffer)
	base := log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
	return &Logger{Logger: base, Buffer: buf}
}

// GetOutput returns everything written to a test logger.
func (l *Logger) GetOutput() string {
	if l.Buffer == nil {
		return ""
	}
	return l.Buffer.String()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), Buffer: l.Buffer}
}

// BaseLogger returns the underlying *log.Logger.
func (l *Logger) BaseLogger() *log.Logger {
	return l.Logger
}

// Debug logs debug messages if debug logging is enabled.
func Debug(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Debug(msg, keyvals...)
}

// Info logs informational messages.
func Info(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Info(msg, keyvals...)
}

// Warn logs warning messages.
func Warn(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Warn(msg, keyvals...)
}

// Error logs error messages.
func Error(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Error(msg, keyvals...)
}

// GetLogger returns the Logger instance.
func GetLogger() *Logger {
	ensureInitialized()
	return logger
}

// ResetForTest drops the process-wide logger so the next call rebuilds it.
func ResetForTest() {
	logger = nil
	once = sync.Once{}
}

func ensureInitialized() {
	if logger == nil {
		CreateLogger()
	}
}
