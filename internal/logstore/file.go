package logstore

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// FileBackend keeps the log in a single regular file opened for appending.
type FileBackend struct {
	path string
	f    *os.File
	size int64
}

// NewFileBackend returns a backend for path. Nothing is touched on disk
// until Reset.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Append(p []byte) error {
	if b.f == nil {
		return os.ErrClosed
	}
	n, err := b.f.Write(p)
	b.size += int64(n)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

func (b *FileBackend) ReadAll() ([]byte, error) {
	if b.f == nil {
		return nil, os.ErrClosed
	}
	buf := make([]byte, b.size)
	n, err := b.f.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Reset creates the file or truncates an existing one.
func (b *FileBackend) Reset() error {
	if b.f != nil {
		_ = b.f.Close()
		b.f = nil
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	b.f = f
	b.size = 0
	return nil
}

// Destroy closes and unlinks the file. A file that is already gone is not
// an error.
func (b *FileBackend) Destroy() error {
	var closeErr error
	if b.f != nil {
		closeErr = b.f.Close()
		b.f = nil
	}
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	b.size = 0
	return closeErr
}

func (b *FileBackend) Size() int64 { return b.size }
