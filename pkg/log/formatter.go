package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// JSONFormatter renders one JSON object per entry.
type JSONFormatter struct {
	// TimestampFormat defaults to time.RFC3339Nano.
	TimestampFormat string
}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	data := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}
	data["ts"] = entry.Timestamp.Format(layout)
	data["level"] = entry.Level.String()
	data["msg"] = entry.Message
	if entry.Caller != "" {
		data["caller"] = entry.Caller
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("log: marshal entry: %w", err)
	}
	return append(b, '\n'), nil
}

// TextFormatter renders "ts LEVEL msg k=v ..." lines with sorted keys.
type TextFormatter struct {
	TimestampFormat string
	// ShowCaller appends the caller location.
	ShowCaller bool
}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02T15:04:05.000Z07:00"
	}
	var buf bytes.Buffer
	buf.WriteString(entry.Timestamp.Format(layout))
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, "%-5s", entry.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	if f.ShowCaller && entry.Caller != "" {
		fmt.Fprintf(&buf, " caller=%s", entry.Caller)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
