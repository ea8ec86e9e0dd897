package logstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	pebblestore "github.com/rzbill/aesdsocket/internal/storage/pebble"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	return map[string]Backend{
		"file":   NewFileBackend(filepath.Join(dir, "aesdsocketdata")),
		"pebble": NewPebbleBackend(pebblestore.Options{DataDir: filepath.Join(dir, "aesdsocketdata.pebble")}),
	}
}

func openStore(t *testing.T, b Backend) *Store {
	t.Helper()
	s := New(b)
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

func TestSequentialAppendsConcatenate(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, b)
			recs := []string{"abc\n", "de", "f\n", "ghi\n"}
			var want string
			for _, r := range recs {
				if err := s.Append([]byte(r)); err != nil {
					t.Fatalf("append: %v", err)
				}
				want += r
			}
			got, err := s.ReadAll()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != want {
				t.Fatalf("got %q want %q", got, want)
			}
			if s.Size() != int64(len(want)) {
				t.Fatalf("size = %d want %d", s.Size(), len(want))
			}
		})
	}
}

func TestAppendAndReadIncludesOwnRecord(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, b)
			if err := s.Append([]byte("first\n")); err != nil {
				t.Fatalf("append: %v", err)
			}
			got, err := s.AppendAndRead([]byte("second\n"))
			if err != nil {
				t.Fatalf("append+read: %v", err)
			}
			if string(got) != "first\nsecond\n" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestResetYieldsEmpty(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, b)
			if err := s.Append([]byte("stale\n")); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := s.Reset(); err != nil {
				t.Fatalf("reset: %v", err)
			}
			got, err := s.ReadAll()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 0 || s.Size() != 0 {
				t.Fatalf("store not empty after reset: %q", got)
			}
		})
	}
}

func TestResetTruncatesLeftoverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdsocketdata")
	if err := os.WriteFile(path, []byte("left over from a crash\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := openStore(t, NewFileBackend(path))
	if got, _ := s.ReadAll(); len(got) != 0 {
		t.Fatalf("leftover content survived reset: %q", got)
	}
}

func TestConcurrentAppendsNotLostOrDuplicated(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, b)
			const writers, each = 8, 25
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < each; i++ {
						rec := fmt.Sprintf("w%02d-r%02d-%s\n", w, i, strings.Repeat("x", 40))
						if err := s.Append([]byte(rec)); err != nil {
							t.Errorf("append: %v", err)
							return
						}
					}
				}(w)
			}
			wg.Wait()

			got, err := s.ReadAll()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			lines := strings.Split(strings.TrimSuffix(string(got), "\n"), "\n")
			if len(lines) != writers*each {
				t.Fatalf("lines = %d want %d", len(lines), writers*each)
			}
			sort.Strings(lines)
			for i := 1; i < len(lines); i++ {
				if lines[i] == lines[i-1] {
					t.Fatalf("duplicate record %q", lines[i])
				}
			}
			for _, l := range lines {
				if len(l) != len("w00-r00-")+40 {
					t.Fatalf("interleaved or truncated record %q", l)
				}
			}
		})
	}
}

func TestConcurrentReadersSeeWholeRecords(t *testing.T) {
	s := openStore(t, NewFileBackend(filepath.Join(t.TempDir(), "data")))
	rec := []byte(strings.Repeat("z", 511) + "\n")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := s.Append(rec); err != nil {
				t.Errorf("append: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			got, err := s.ReadAll()
			if err != nil {
				t.Errorf("read: %v", err)
				return
			}
			if len(got)%len(rec) != 0 {
				t.Errorf("observed partial append: len=%d", len(got))
				return
			}
		}
	}()
	wg.Wait()
}

func TestDestroyIdempotent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			if err := s.Reset(); err != nil {
				t.Fatalf("reset: %v", err)
			}
			if err := s.Destroy(); err != nil {
				t.Fatalf("destroy: %v", err)
			}
			if err := s.Destroy(); err != nil {
				t.Fatalf("second destroy: %v", err)
			}
			if err := s.Append([]byte("late\n")); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("append after destroy = %v", err)
			}
			if _, err := s.ReadAll(); !errors.Is(err, ErrDestroyed) {
				t.Fatalf("read after destroy = %v", err)
			}
		})
	}
}

func TestDestroyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdsocketdata")
	s := New(NewFileBackend(path))
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := openStore(t, NewFileBackend(filepath.Join(t.TempDir(), "data")))
	_ = s.Append([]byte("ab\n"))
	_, _ = s.AppendAndRead([]byte("cd\n"))
	_ = s.Append(nil)
	st := s.Stats()
	if st.Appends != 2 || st.BytesWritten != 6 || st.Reads != 1 || st.Size != 6 {
		t.Fatalf("stats = %+v", st)
	}
}

type shortBackend struct{ FileBackend }

func (shortBackend) Append(p []byte) error { return fmt.Errorf("write: %w", errShort) }

var errShort = errors.New("short write")

func TestAppendErrorWrapped(t *testing.T) {
	s := New(&shortBackend{})
	err := s.Append([]byte("x\n"))
	if !errors.Is(err, errShort) {
		t.Fatalf("err = %v", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("logstore: append")) {
		t.Fatalf("missing op prefix: %v", err)
	}
}
