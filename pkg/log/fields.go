package log

import "time"

// Field is a single structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

const errorKey = "error"

// F builds a field from an arbitrary value.
func F(key string, value interface{}) Field { return Field{Key: key, Value: value} }

func Str(key, value string) Field                { return Field{Key: key, Value: value} }
func Int(key string, value int) Field            { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field        { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field      { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field          { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field    { return Field{Key: key, Value: value} }
func Duration(key string, d time.Duration) Field { return Field{Key: key, Value: d.String()} }

// Err attaches err under the "error" key. A nil error yields an empty string
// so call sites need not guard.
func Err(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: ""}
	}
	return Field{Key: errorKey, Value: err}
}

// Component tags a log line with the emitting component.
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }

// Op tags a log line with the operation that produced it.
func Op(name string) Field { return Field{Key: OperationKey, Value: name} }
