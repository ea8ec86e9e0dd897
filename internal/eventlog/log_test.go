package eventlog

import (
	"bytes"
	"errors"
	"testing"

	pebblestore "github.com/rzbill/aesdsocket/internal/storage/pebble"
)

func openDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) (*Log, *pebblestore.DB) {
	t.Helper()
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "test")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l, db
}

func TestAppendReadAll(t *testing.T) {
	l, _ := newTestLog(t)
	for _, chunk := range []string{"hel", "lo\n", "world\n"} {
		if _, err := l.Append([]byte(chunk)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if string(got) != "hello\nworld\n" {
		t.Fatalf("got %q", got)
	}
	if l.Size() != int64(len(got)) || l.LastSeq() != 3 {
		t.Fatalf("size=%d lastSeq=%d", l.Size(), l.LastSeq())
	}
}

func TestTruncate(t *testing.T) {
	l, _ := newTestLog(t)
	if _, err := l.Append([]byte("x\n")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Truncate(); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 0 || l.Size() != 0 {
		t.Fatalf("expected empty log, got %q", got)
	}
	if _, err := l.Append([]byte("y\n")); err != nil {
		t.Fatalf("append after truncate: %v", err)
	}
	if got, _ := l.ReadAll(); string(got) != "y\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReopenRestoresMeta(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)
	l, err := OpenLog(db, "test")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := l.Append([]byte("abc")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "test")
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	if l2.LastSeq() != 1 || l2.Size() != 3 {
		t.Fatalf("meta not restored: seq=%d size=%d", l2.LastSeq(), l2.Size())
	}
}

func TestCorruptEntryDetected(t *testing.T) {
	l, db := newTestLog(t)
	if _, err := l.Append([]byte("good")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Set(KeyEntry("test", 1), []byte("garbage")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := l.ReadAll(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	enc := EncodeRecord([]byte("payload"))
	dec, ok := DecodeRecord(enc)
	if !ok || !bytes.Equal(dec, []byte("payload")) {
		t.Fatalf("decode failed: %q %v", dec, ok)
	}
	enc[0] ^= 0xff
	if _, ok := DecodeRecord(enc); ok {
		t.Fatalf("expected checksum failure")
	}
}

func TestKeysOrderBySeq(t *testing.T) {
	a := KeyEntry("n", 1)
	b := KeyEntry("n", 256)
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("expected big-endian ordering")
	}
}
