package eventlog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: payload | crc32c(payload) (4 bytes BE).

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames payload with its checksum.
func EncodeRecord(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, payload...)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.Checksum(payload, castagnoli))
	return append(out, crcb[:]...)
}

// DecodeRecord returns the payload if the checksum matches.
func DecodeRecord(b []byte) ([]byte, bool) {
	if len(b) < 4 {
		return nil, false
	}
	payload := b[:len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Checksum(payload, castagnoli) != expect {
		return nil, false
	}
	return payload, true
}
