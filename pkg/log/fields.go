package log

import "time"

// Field is a single structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field from an arbitrary value.
func F(key string, value interface{}) Field { return Field{Key: key, Value: value} }

func Str(key, value string) Field            { return Field{Key: key, Value: value} }
func Int(key string, value int) Field        { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field    { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field  { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field      { return Field{Key: key, Value: value} }
func Strs(key string, value []string) Field  { return Field{Key: key, Value: value} }
func Dur(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err attaches an error under the "error" key. A nil error yields an empty string.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component tags entries with the emitting component.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// SessionID tags entries with a subscriber session id.
func SessionID(id string) Field { return Field{Key: SessionIDKey, Value: id} }
