// Package log provides the structured logging facade used across aesdsocket.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the standard
// library slog via a bridge handler that feeds a formatter and a set of
// outputs, so every component produces the same line shape.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("tcp"))
//	l.Info("accepted connection", log.Str("remote", "10.0.0.7"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: text or JSON
// formatting, console/file/syslog/null outputs, field redaction and
// per-message sampling. Text output is coloured when stderr is a terminal.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by Pebble) and the
// slog default logger through a Logger.
package log
