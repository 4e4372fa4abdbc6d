package log

import (
	stdlog "log"
	"strings"
)

type stdWriter struct {
	logger Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"), Str("source", "stdlib"))
	return len(p), nil
}

// ToStdLogger adapts logger for libraries that want a *log.Logger.
func ToStdLogger(logger Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: logger}, "", 0)
}

// RedirectStdLog routes the standard library's default logger (used by
// Pebble and gRPC internals) into logger.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(stdWriter{logger: logger})
}
