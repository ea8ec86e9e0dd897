package logstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrDestroyed is returned by operations on a store whose backing object has
// been removed.
var ErrDestroyed = errors.New("logstore: destroyed")

// Backend is the storage behind a Store. Implementations need not be safe for
// concurrent use; Store serializes every call.
type Backend interface {
	// Append adds p to the end. A partial write must be reported as an error.
	Append(p []byte) error
	// ReadAll returns the complete content from the beginning.
	ReadAll() ([]byte, error)
	// Reset truncates (or creates) the backing object to empty.
	Reset() error
	// Destroy removes the backing object.
	Destroy() error
	// Size returns the current length in bytes.
	Size() int64
}

// Stats are cumulative counters since the store was opened.
type Stats struct {
	Appends      uint64 `json:"appends"`
	BytesWritten uint64 `json:"bytesWritten"`
	Reads        uint64 `json:"reads"`
	Size         int64  `json:"size"`
}

// Store is the shared append-only log. Every mutation and every full read
// happens under one mutex, so readers only see completed appends.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	destroyed bool

	appends atomic.Uint64
	written atomic.Uint64
	reads   atomic.Uint64
}

// New wraps backend. The caller is expected to call Reset before use.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Append adds p to the end of the log.
func (s *Store) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(p)
}

// ReadAll returns the complete current content.
func (s *Store) ReadAll() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// AppendAndRead appends p and returns the full content in the same critical
// section, so no other append can land between the two.
func (s *Store) AppendAndRead(p []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(p); err != nil {
		return nil, err
	}
	return s.readLocked()
}

// Reset truncates the log to empty.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Reset(); err != nil {
		return fmt.Errorf("logstore: reset: %w", err)
	}
	s.destroyed = false
	return nil
}

// Destroy removes the backing object. Calling it again is a no-op.
func (s *Store) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	if err := s.backend.Destroy(); err != nil {
		return fmt.Errorf("logstore: destroy: %w", err)
	}
	return nil
}

// Size returns the current log length in bytes.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0
	}
	return s.backend.Size()
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	return Stats{
		Appends:      s.appends.Load(),
		BytesWritten: s.written.Load(),
		Reads:        s.reads.Load(),
		Size:         s.Size(),
	}
}

func (s *Store) appendLocked(p []byte) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if len(p) == 0 {
		return nil
	}
	if err := s.backend.Append(p); err != nil {
		return fmt.Errorf("logstore: append: %w", err)
	}
	s.appends.Add(1)
	s.written.Add(uint64(len(p)))
	return nil
}

func (s *Store) readLocked() ([]byte, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	b, err := s.backend.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("logstore: read: %w", err)
	}
	s.reads.Add(1)
	return b, nil
}
