package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
	"github.com/rzbill/aesdsocket/internal/logstore"
	"github.com/rzbill/aesdsocket/internal/worker"
)

type harness struct {
	srv   *Server
	store *logstore.Store
	tasks *worker.Registry
	ctl   *lifecycle.Controller
	addr  string
	done  chan error
}

func start(t *testing.T, store Store, opts Options) *harness {
	t.Helper()
	if opts.ReapInterval == 0 {
		opts.ReapInterval = 20 * time.Millisecond
	}
	h := &harness{
		tasks: worker.NewRegistry(nil),
		ctl:   lifecycle.New(nil),
		done:  make(chan error, 1),
	}
	if store == nil {
		h.store = logstore.New(logstore.NewFileBackend(filepath.Join(t.TempDir(), "aesdsocketdata")))
		require.NoError(t, h.store.Reset())
		store = h.store
	}
	h.srv = New(store, h.tasks, h.ctl, opts)

	l, err := Listen(context.Background(), "127.0.0.1:0")
	require.NoError(t, err)
	h.addr = l.Addr().String()
	go func() { h.done <- h.srv.Serve(context.Background(), l) }()

	t.Cleanup(func() {
		h.ctl.RequestShutdown("test cleanup")
		<-h.done
		h.tasks.DrainAll()
		if h.store != nil {
			_ = h.store.Destroy()
		}
	})
	return h
}

// send writes msg and reads until the server closes the connection.
func send(addr, msg string) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(msg)); err != nil {
		return "", err
	}
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return "", err
	}
	out, err := io.ReadAll(conn)
	return string(out), err
}

func roundTrip(t *testing.T, addr, msg string) string {
	t.Helper()
	out, err := send(addr, msg)
	require.NoError(t, err)
	return out
}

func TestSingleRecordEcho(t *testing.T) {
	h := start(t, nil, Options{})
	require.Equal(t, "hello\n", roundTrip(t, h.addr, "hello\n"))
}

func TestSequentialClientsSeeEarlierRecords(t *testing.T) {
	h := start(t, nil, Options{})
	require.Equal(t, "foo\n", roundTrip(t, h.addr, "foo\n"))
	require.Equal(t, "foo\nbar\n", roundTrip(t, h.addr, "bar\n"))
}

func TestRecordLargerThanBuffer(t *testing.T) {
	h := start(t, nil, Options{RecvBufferBytes: 8})
	rec := strings.Repeat("0123456789", 30) + "\n"
	require.Equal(t, rec, roundTrip(t, h.addr, rec))
}

func TestRecordSplitAcrossWrites(t *testing.T) {
	h := start(t, nil, Options{})
	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()
	for _, part := range []string{"hel", "lo ", "world\n"} {
		_, err := conn.Write([]byte(part))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(out))
}

func TestConcurrentClients(t *testing.T) {
	h := start(t, nil, Options{})
	const clients = 20
	var wg sync.WaitGroup
	responses := make([]string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := send(h.addr, fmt.Sprintf("client-%02d\n", i))
			if err != nil {
				t.Errorf("client %d: %v", i, err)
			}
			responses[i] = out
		}(i)
	}
	wg.Wait()

	for i, resp := range responses {
		require.Contains(t, resp, fmt.Sprintf("client-%02d\n", i))
	}
	all, err := h.store.ReadAll()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(all), "\n"), "\n")
	require.Len(t, lines, clients)
	seen := map[string]bool{}
	for _, l := range lines {
		require.False(t, seen[l], "duplicate %q", l)
		seen[l] = true
	}
	// Every echo is a prefix of the final log.
	for _, resp := range responses {
		require.True(t, strings.HasPrefix(string(all), resp), "echo %q not a prefix", resp)
	}
}

func TestPeerCloseMidRecordKeepsChunks(t *testing.T) {
	h := start(t, nil, Options{})
	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Empty(t, out)
	conn.Close()

	require.Equal(t, "partialnext\n", roundTrip(t, h.addr, "next\n"))
}

func TestFinishedWorkersReapedWithoutNewConnections(t *testing.T) {
	h := start(t, nil, Options{ReapInterval: 10 * time.Millisecond})
	roundTrip(t, h.addr, "x\n")
	require.Eventually(t, func() bool { return h.tasks.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestKeepOpenConnection(t *testing.T) {
	h := start(t, nil, Options{RecordsPerConn: KeepOpen})
	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	want := ""
	for _, rec := range []string{"one\n", "two\n", "three\n"} {
		_, err := conn.Write([]byte(rec))
		require.NoError(t, err)
		want += rec
		got := make([]byte, len(want))
		_, err = io.ReadFull(conn, got)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
}

func TestSecondRecordOnDefaultConnectionGetsEOF(t *testing.T) {
	h := start(t, nil, Options{})
	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte("first\n"))
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "first\n", string(out))
}

func TestIdleTimeoutClosesKeepOpenConnection(t *testing.T) {
	h := start(t, nil, Options{RecordsPerConn: KeepOpen, IdleTimeout: 50 * time.Millisecond})
	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestShutdownClosesListener(t *testing.T) {
	h := start(t, nil, Options{})
	require.Equal(t, "a\n", roundTrip(t, h.addr, "a\n"))
	h.ctl.RequestShutdown("test")
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return")
	}
	_, err := net.DialTimeout("tcp", h.addr, 200*time.Millisecond)
	require.Error(t, err)
}

// interleavingStore injects another client's record right after the first
// Append of a final chunk, as a racing worker would.
type interleavingStore struct {
	*logstore.Store
	once sync.Once
}

func (s *interleavingStore) Append(p []byte) error {
	if err := s.Store.Append(p); err != nil {
		return err
	}
	s.once.Do(func() { _ = s.Store.Append([]byte("racer\n")) })
	return nil
}

func (s *interleavingStore) AppendAndRead(p []byte) ([]byte, error) {
	out, err := s.Store.AppendAndRead(p)
	s.once.Do(func() { _ = s.Store.Append([]byte("racer\n")) })
	return out, err
}

func TestEchoModes(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		// the echo reflects the log as of this record's append
		{EchoAtomic, "mine\n"},
		// the read happens after the lock is released and sees the racer
		{EchoSplit, "mine\nracer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			base := logstore.New(logstore.NewFileBackend(filepath.Join(t.TempDir(), "data")))
			require.NoError(t, base.Reset())
			defer base.Destroy()
			h := start(t, &interleavingStore{Store: base}, Options{EchoMode: tt.mode})
			require.Equal(t, tt.want, roundTrip(t, h.addr, "mine\n"))
		})
	}
}

var errStoreDown = errors.New("store down")

// failingStore fails every write, holding the first one until released so
// the worker is still registered when the test inspects it.
type failingStore struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newFailingStore() *failingStore {
	return &failingStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *failingStore) fail() error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return errStoreDown
}

func (s *failingStore) Append([]byte) error { return s.fail() }
func (s *failingStore) ReadAll() ([]byte, error) { return nil, nil }
func (s *failingStore) AppendAndRead([]byte) ([]byte, error) { return nil, s.fail() }

func TestStoreFailureClosesWithoutResponse(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		op   string
	}{
		{"final chunk", "doomed\n", "echo"},
		{"partial chunk", "doomed", "recv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFailingStore()
			h := start(t, fs, Options{ReapInterval: time.Hour})
			conn, err := net.Dial("tcp", h.addr)
			require.NoError(t, err)
			defer conn.Close()
			_, err = conn.Write([]byte(tt.msg))
			require.NoError(t, err)

			select {
			case <-fs.entered:
			case <-time.After(5 * time.Second):
				t.Fatalf("store never called")
			}
			close(fs.release)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			out, err := io.ReadAll(conn)
			require.NoError(t, err)
			require.Empty(t, out)

			h.ctl.RequestShutdown("test")
			err = <-h.done
			h.done <- err
			results := h.tasks.DrainAll()
			require.Len(t, results, 1)
			require.Equal(t, worker.StatusFailed, results[0].Status)
			require.ErrorIs(t, results[0].Err, errStoreDown)
			require.Contains(t, results[0].Err.Error(), tt.op+":")
		})
	}
}
