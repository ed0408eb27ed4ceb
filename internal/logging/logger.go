package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

var (
	rootMu    sync.Mutex
	rootLevel logrus.Level = logrus.InfoLevel
	rootOut   io.Writer    = os.Stdout
)

// SetDefaultLevel sets the level used by loggers created after this call.
func SetDefaultLevel(level LogLevel) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootLevel = toLogrusLevel(level)
}

// SetDefaultOutput sets the writer used by loggers created after this call.
func SetDefaultOutput(w io.Writer) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootOut = w
}

// ParseLevel maps a settings string to a LogLevel, falling back to INFO.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn:
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	case LogLevelFatal:
		return LogLevelFatal
	default:
		return LogLevelInfo
	}
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	base      *logrus.Logger
	mu        sync.Mutex
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	rootMu.Lock()
	level, out := rootLevel, rootOut
	rootMu.Unlock()

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	return &Logger{
		component: component,
		base:      base,
	}
}

// SetMinLevel sets the minimum log level to output
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetLevel(toLogrusLevel(level))
	return l
}

// AddOutput adds an output writer for logs
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetOutput(io.MultiWriter(l.base.Out, w))
	return l
}

// SetOutput replaces every output writer
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetOutput(w)
	return l
}

// SetJSON switches the logger to JSON lines
func (l *Logger) SetJSON() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetFormatter(&logrus.JSONFormatter{})
	return l
}

// Component returns the component name attached to every entry
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) entry(err error, context map[string]interface{}) *logrus.Entry {
	fields := logrus.Fields{"component": l.component}
	for k, v := range context {
		fields[k] = v
	}
	e := l.base.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func (l *Logger) log(level LogLevel, message string, err error, context map[string]interface{}) {
	e := l.entry(err, context)
	switch level {
	case LogLevelDebug:
		e.Debug(message)
	case LogLevelInfo:
		e.Info(message)
	case LogLevelWarn:
		e.Warn(message)
	case LogLevelError:
		e.Error(message)
	case LogLevelFatal:
		// Fatal entries are logged at error level; callers decide whether to exit.
		e.WithField("fatal", true).Error(message)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelDebug, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelInfo, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelWarn, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(LogLevelError, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(LogLevelError, message, err, context)
}

// Fatal logs a fatal error message
func (l *Logger) Fatal(message string, err error) {
	l.log(LogLevelFatal, message, err, nil)
}

// WithContext returns a logger that includes context on every entry
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.log(LogLevelDebug, message, nil, cl.context)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.log(LogLevelInfo, message, nil, cl.context)
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.log(LogLevelWarn, message, nil, cl.context)
}

// Error logs an error message with pre-set context
func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.log(LogLevelError, message, err, cl.context)
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError, LogLevelFatal:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
