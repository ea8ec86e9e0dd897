package id

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit, sortable identifier encoded as 16 bytes big-endian:
// [8 bytes ms_timestamp][8 bytes sequence].
type ID [16]byte

// Zero is the unset ID.
var Zero ID

// ErrInvalid is returned by Parse for malformed input.
var ErrInvalid = errors.New("id: invalid encoding")

// String returns the 32-character hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Short returns a compact form suitable for log lines: the low 6 bytes of the
// timestamp followed by the low 2 bytes of the sequence.
func (i ID) Short() string { return hex.EncodeToString(i[2:8]) + hex.EncodeToString(i[14:16]) }

// Time returns the millisecond timestamp embedded in the ID.
func (i ID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8])))
}

// Seq returns the per-millisecond sequence.
func (i ID) Seq() uint64 { return binary.BigEndian.Uint64(i[8:16]) }

// IsZero reports whether the ID is unset.
func (i ID) IsZero() bool { return i == Zero }

// Compare returns -1, 0, 1 based on lexical comparison.
func (i ID) Compare(other ID) int {
	for idx := 0; idx < len(i); idx++ {
		if i[idx] < other[idx] {
			return -1
		}
		if i[idx] > other[idx] {
			return 1
		}
	}
	return 0
}

// MarshalText renders the hex form so IDs serialize cleanly in JSON.
func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	var out ID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(out) {
		return Zero, ErrInvalid
	}
	copy(out[:], b)
	return out, nil
}

// Generator produces strictly increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	now      func() int64
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{now: func() int64 { return time.Now().UnixMilli() }}
}

// Next returns a new ID. A regressing clock is pinned to the last seen
// millisecond; an exhausted sequence waits for the next millisecond.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == math.MaxUint64 {
			for ms <= g.lastMs {
				time.Sleep(time.Millisecond / 8)
				ms = g.now()
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], g.sequence)
	return id
}
