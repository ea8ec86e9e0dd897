package log

import (
	"io"
	"log/syslog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// ConsoleOutput writes formatted entries to stderr.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an output bound to os.Stderr.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{w: os.Stderr} }

func (o *ConsoleOutput) Write(_ *Entry, b []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	w := o.w
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write(b)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// IsTerminal reports whether stderr is attached to a terminal.
func IsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WriterOutput writes formatted entries to an arbitrary writer.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterOutput(w io.Writer) *WriterOutput { return &WriterOutput{w: w} }

func (o *WriterOutput) Write(_ *Entry, b []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(b)
	return err
}

func (o *WriterOutput) Close() error { return nil }

// FileOutput appends formatted entries to a file.
type FileOutput struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileOutput opens (or creates) path for appending.
func NewFileOutput(path string) (*FileOutput, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{f: f}, nil
}

func (o *FileOutput) Write(_ *Entry, b []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.f.Write(b)
	return err
}

func (o *FileOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f.Close()
}

// NullOutput discards everything.
type NullOutput struct{}

func (NullOutput) Write(*Entry, []byte) error { return nil }
func (NullOutput) Close() error               { return nil }

// SyslogOutput forwards entries to the local syslog daemon using the
// entry level to pick the priority. When Formatter is set the entry is
// re-rendered with it instead of using the logger's formatting.
type SyslogOutput struct {
	Formatter Formatter
	w         *syslog.Writer
}

// NewSyslogOutput dials the local syslog with the LOG_USER facility.
func NewSyslogOutput(tag string) (*SyslogOutput, error) {
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, err
	}
	return &SyslogOutput{w: w}, nil
}

func (o *SyslogOutput) Write(entry *Entry, b []byte) error {
	if o.Formatter != nil {
		var err error
		if b, err = o.Formatter.Format(entry); err != nil {
			return err
		}
	}
	msg := string(b)
	switch entry.Level {
	case DebugLevel:
		return o.w.Debug(msg)
	case InfoLevel:
		return o.w.Info(msg)
	case WarnLevel:
		return o.w.Warning(msg)
	case ErrorLevel:
		return o.w.Err(msg)
	default:
		return o.w.Crit(msg)
	}
}

func (o *SyslogOutput) Close() error { return o.w.Close() }
