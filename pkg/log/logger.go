// Package log provides the structured logging facade used across geyserd.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Context keys for propagating logging context
const (
	SessionIDKey = "session_id"
	ComponentKey = "component"
	OperationKey = "operation"
)

type ctxKey string

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger defines the core logging interface for geyserd components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs at FatalLevel and exits the process.
	Fatal(msg string, fields ...Field)

	// With adds fields to every entry emitted by the returned logger.
	With(fields ...Field) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
	// WithContext copies the session/operation values stored by ContextWith.
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	state      *loggerState
	slogLogger *slog.Logger
}

// loggerState is shared between a logger and the children created by With.
type loggerState struct {
	mu        sync.RWMutex
	level     Level
	formatter Formatter
	outputs   []Output
}

func (s *loggerState) getLevel() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// ContextWith stores a logging value (session id, operation) in ctx.
func ContextWith(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{state: &loggerState{
		level:     InfoLevel,
		formatter: &JSONFormatter{},
	}}
	for _, option := range options {
		option(logger)
	}
	if len(logger.state.outputs) == 0 {
		logger.state.outputs = append(logger.state.outputs, NewConsoleOutput())
	}
	logger.slogLogger = slog.New(newBridgeHandler(logger.state))
	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.state.level = level
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.state.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.state.outputs = append(l.state.outputs, output)
	}
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < l.state.getLevel() {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{state: l.state, slogLogger: l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...)}
}

func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.With(Err(err))
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	var fields []Field
	for _, key := range []string{SessionIDKey, OperationKey, ComponentKey} {
		if v, ok := ctx.Value(ctxKey(key)).(string); ok && v != "" {
			fields = append(fields, Str(key, v))
		}
	}
	return l.With(fields...)
}

func (l *BaseLogger) SetLevel(level Level) {
	l.state.mu.Lock()
	l.state.level = level
	l.state.mu.Unlock()
}

func (l *BaseLogger) GetLevel() Level { return l.state.getLevel() }
