package log

import (
	stdlog "log"
	"log/slog"
	"strings"
)

// ToStdLogger adapts l to a *log.Logger writing at the given level.
func ToStdLogger(l Logger, level Level) *stdlog.Logger {
	return stdlog.New(&stdWriter{l: l, level: level}, "", 0)
}

// RedirectStdLog routes the standard library's default logger (used by some
// dependencies) through l at InfoLevel.
func RedirectStdLog(l Logger) {
	if bl, ok := l.(*BaseLogger); ok {
		slog.SetDefault(bl.slogLogger)
	}
	stdlog.SetFlags(0)
	stdlog.SetPrefix("")
	stdlog.SetOutput(&stdWriter{l: l, level: InfoLevel})
}

type stdWriter struct {
	l     Logger
	level Level
}

func (w *stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	switch w.level {
	case DebugLevel:
		w.l.Debug(msg)
	case WarnLevel:
		w.l.Warn(msg)
	case ErrorLevel, FatalLevel:
		w.l.Error(msg)
	default:
		w.l.Info(msg)
	}
	return len(p), nil
}
