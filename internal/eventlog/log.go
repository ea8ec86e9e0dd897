package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/aesdsocket/internal/storage/pebble"
)

// ErrCorrupt is returned when a stored entry fails its checksum.
var ErrCorrupt = errors.New("eventlog: corrupt entry")

// Log is an append-only byte log persisted as numbered chunks in Pebble.
type Log struct {
	db   *pebblestore.DB
	name string

	mu      sync.Mutex
	lastSeq uint64
	size    int64
}

// OpenLog initializes a Log and loads lastSeq/size from metadata (if any).
func OpenLog(db *pebblestore.DB, name string) (*Log, error) {
	l := &Log{db: db, name: name}
	meta, err := db.Get(KeyMeta(name))
	switch {
	case err == nil && len(meta) >= 16:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
		l.size = int64(binary.BigEndian.Uint64(meta[8:16]))
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, fmt.Errorf("eventlog: load meta: %w", err)
	}
	return l, nil
}

// Append stores p as the next chunk together with updated metadata in one
// atomic batch. Returns the assigned sequence.
func (l *Log) Append(p []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seq := l.lastSeq + 1
	if err := b.Set(KeyEntry(l.name, seq), EncodeRecord(p), nil); err != nil {
		return 0, err
	}
	size := l.size + int64(len(p))
	if err := b.Set(KeyMeta(l.name), encodeMeta(seq, size), nil); err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(b); err != nil {
		return 0, err
	}
	l.lastSeq = seq
	l.size = size
	return seq, nil
}

// ReadAll concatenates every chunk in sequence order.
func (l *Log) ReadAll() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	low, high := entryBounds(l.name)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]byte, 0, l.size)
	for ok := iter.First(); ok; ok = iter.Next() {
		payload, valid := DecodeRecord(iter.Value())
		if !valid {
			return nil, fmt.Errorf("%w at key %x", ErrCorrupt, iter.Key())
		}
		out = append(out, payload...)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Truncate deletes every chunk and resets the metadata.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	low, high := entryBounds(l.name)
	if err := l.db.DeleteRange(low, high); err != nil {
		return err
	}
	if err := l.db.Set(KeyMeta(l.name), encodeMeta(0, 0)); err != nil {
		return err
	}
	l.lastSeq = 0
	l.size = 0
	return nil
}

// Size returns the total payload bytes.
func (l *Log) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// LastSeq returns the sequence of the most recent chunk (0 if empty).
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

func encodeMeta(seq uint64, size int64) []byte {
	var meta [16]byte
	binary.BigEndian.PutUint64(meta[:8], seq)
	binary.BigEndian.PutUint64(meta[8:], uint64(size))
	return meta[:]
}
