package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
)

// bridgeHandler is a slog.Handler that routes records through the logger's
// formatter and outputs.
type bridgeHandler struct {
	state *loggerState
	attrs []slog.Attr
	group string
}

func newBridgeHandler(state *loggerState) *bridgeHandler {
	return &bridgeHandler{state: state}
}

// Enabled gates by the shared logger level.
func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.state.getLevel() <= fromSlogLevel(level)
}

// Handle converts the slog record to an Entry and writes it to every output.
func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := Fields{}
	for i := range h.attrs {
		a := h.attrs[i]
		fields[h.key(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.Any()
		return true
	})

	caller := ""
	if pc := r.PC; pc != 0 {
		if fn := runtime.FuncForPC(pc); fn != nil {
			file, line := fn.FileLine(pc)
			caller = file + ":" + strconv.Itoa(line)
		}
	}

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    caller,
	}

	h.state.mu.RLock()
	formatter, outputs := h.state.formatter, h.state.outputs
	h.state.mu.RUnlock()

	formatted, err := formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

func (h *bridgeHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// WithAttrs returns a copy of the handler with additional base attributes.
func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	if len(attrs) > 0 {
		nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	}
	return &nh
}

// WithGroup returns a copy of the handler that prefixes keys with name.
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.group = name
	return &nh
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level <= slog.LevelDebug:
		return DebugLevel
	case level == slog.LevelInfo:
		return InfoLevel
	case level == slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

// attrsToAny converts []slog.Attr to []any for slog.Logger.With.
func attrsToAny(attrs []slog.Attr) []any {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]any, len(attrs))
	for i := range attrs {
		out[i] = attrs[i]
	}
	return out
}
