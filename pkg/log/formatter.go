package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TextFormatter renders entries as a single human readable line:
//
//	2006-01-02T15:04:05.000Z07:00 INFO  message key=value ...
type TextFormatter struct {
	// Color wraps the level in ANSI colours.
	Color bool
	// DisableTimestamp drops the leading timestamp (syslog stamps its own).
	DisableTimestamp bool
	// ShowCaller appends the caller file:line.
	ShowCaller bool
}

var levelColors = map[Level]*color.Color{
	DebugLevel: color.New(color.FgHiBlack),
	InfoLevel:  color.New(color.FgCyan),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed),
	FatalLevel: color.New(color.FgHiRed, color.Bold),
}

func init() {
	for _, c := range levelColors {
		c.EnableColor()
	}
}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if !f.DisableTimestamp {
		buf.WriteString(entry.Timestamp.Format(time.RFC3339Nano))
		buf.WriteByte(' ')
	}
	lvl := fmt.Sprintf("%-5s", entry.Level.String())
	if c, ok := levelColors[entry.Level]; ok && f.Color {
		lvl = c.Sprint(lvl)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	for _, k := range sortedKeys(entry.Fields) {
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(quoteIfNeeded(fmt.Sprint(entry.Fields[k])))
	}
	if f.ShowCaller && entry.Caller != "" {
		buf.WriteString(" caller=")
		buf.WriteString(entry.Caller)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	// TimestampFormat defaults to RFC3339Nano.
	TimestampFormat string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	out := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		out[k] = v
	}
	out["time"] = entry.Timestamp.Format(layout)
	out["level"] = entry.Level.String()
	out["msg"] = entry.Message
	if entry.Caller != "" {
		out["caller"] = entry.Caller
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys(m Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
