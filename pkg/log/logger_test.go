package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestTextLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(InfoLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Debug("hidden")
	l.With(Component("engine")).Info("session attached", Str("session_id", "s1"), Uint64("slot", 7))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered: %q", out)
	}
	for _, want := range []string{"INFO", "session attached", "component=engine", "session_id=s1", "slot=7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestJSONLoggerError(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(DebugLevel), WithOutput(NewWriterOutput(&buf)))
	l.WithError(errors.New("boom")).Warn("overflow")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if m["error"] != "boom" || m["level"] != "WARN" || m["msg"] != "overflow" {
		t.Fatalf("unexpected entry: %v", m)
	}
}

func TestSetLevelSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(ErrorLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	child := l.With(Component("dispatcher"))
	child.Info("before")
	l.SetLevel(DebugLevel)
	child.Info("after")
	if strings.Contains(buf.String(), "before") || !strings.Contains(buf.String(), "after") {
		t.Fatalf("level change not visible to child: %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	ctx := ContextWith(context.Background(), SessionIDKey, "abc")
	l.WithContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), "session_id=abc") {
		t.Fatalf("context field missing: %q", buf.String())
	}
}

func TestApplyConfig(t *testing.T) {
	if _, err := ApplyConfig(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
	l, err := ApplyConfig(&Config{Level: "warn", Format: "json", Outputs: []string{"null"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != WarnLevel {
		t.Fatalf("level = %v", l.GetLevel())
	}
}
