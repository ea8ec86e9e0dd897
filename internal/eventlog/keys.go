package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
//   - log/{name}/m           (metadata: lastSeq_be8 | size_be8)
//   - log/{name}/e/{seq_be8} (entries)

var (
	logPrefix  = []byte("log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the metadata key for a named log.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(metaSuffix))
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian sequence for ordering.
func KeyEntry(name string, seq uint64) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(entrySeg)+8)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// entryBounds returns [low, high) covering every entry of a named log.
func entryBounds(name string) ([]byte, []byte) {
	low := KeyEntry(name, 0)
	high := append(KeyEntry(name, ^uint64(0)), 0x00)
	return low, high
}
