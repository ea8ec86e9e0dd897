package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
	"github.com/rzbill/aesdsocket/internal/worker"
	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// Echo modes.
const (
	EchoAtomic = "atomic"
	EchoSplit  = "split"
)

// KeepOpen as Options.RecordsPerConn serves records until the peer closes.
const KeepOpen = -1

const (
	defaultRecvBuffer   = 1024
	defaultReapInterval = time.Second
)

// Store is the part of the shared log a connection worker needs.
type Store interface {
	Append(p []byte) error
	ReadAll() ([]byte, error)
	AppendAndRead(p []byte) ([]byte, error)
}

// Options tunes connection handling.
type Options struct {
	// RecvBufferBytes is the size of each read from a client.
	RecvBufferBytes int
	// RecordsPerConn closes the connection after that many echoes. Zero
	// means one; KeepOpen serves records until the peer closes.
	RecordsPerConn int
	// IdleTimeout ends a connection that has sent nothing for this long
	// while no partial record is pending. Zero disables it.
	IdleTimeout time.Duration
	// ReapInterval bounds how long Accept may block before finished
	// workers are reaped.
	ReapInterval time.Duration
	// EchoMode is EchoAtomic or EchoSplit.
	EchoMode string
	Logger   logpkg.Logger
}

// Server accepts clients, runs one connection worker per client and reaps
// finished workers between accepts.
type Server struct {
	store  Store
	tasks  *worker.Registry
	ctl    *lifecycle.Controller
	opts   Options
	logger logpkg.Logger

	mu  sync.Mutex
	lis net.Listener
}

// New builds a Server. Workers are registered in tasks; ctl provides the
// shutdown flag.
func New(store Store, tasks *worker.Registry, ctl *lifecycle.Controller, opts Options) *Server {
	if opts.RecvBufferBytes <= 0 {
		opts.RecvBufferBytes = defaultRecvBuffer
	}
	if opts.RecordsPerConn == 0 {
		opts.RecordsPerConn = 1
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = defaultReapInterval
	}
	if opts.EchoMode == "" {
		opts.EchoMode = EchoAtomic
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Server{
		store:  store,
		tasks:  tasks,
		ctl:    ctl,
		opts:   opts,
		logger: opts.Logger.With(logpkg.Component("tcp")),
	}
}

// Listen binds an IPv4 TCP listener on addr with SO_REUSEADDR set.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var serr error
			if err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return serr
		},
	}
	return lc.Listen(ctx, "tcp4", addr)
}

// ListenAndServe binds to addr and serves until shutdown is requested.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := Listen(ctx, addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve runs the accept loop on the calling goroutine. It returns once
// shutdown has been requested (or ctx is done) and the listener is closed.
// Remaining workers are left registered for the caller to drain.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()
	defer s.Close()

	// Unblock Accept as soon as shutdown is requested.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-s.ctl.Done():
		case <-ctx.Done():
		case <-stop:
			return
		}
		_ = s.Close()
	}()

	s.logger.Info("listening", logpkg.Str("addr", l.Addr().String()))
	workerCtx := context.WithoutCancel(ctx)
	dl, canDeadline := l.(interface{ SetDeadline(time.Time) error })

	for {
		if s.ctl.ShuttingDown() || ctx.Err() != nil {
			return nil
		}
		if canDeadline {
			_ = dl.SetDeadline(time.Now().Add(s.opts.ReapInterval))
		}
		conn, err := l.Accept()
		switch {
		case err == nil:
			s.spawn(workerCtx, conn)
		case s.ctl.ShuttingDown() || ctx.Err() != nil || errors.Is(err, net.ErrClosed):
			return nil
		case isTimeout(err):
			// reap deadline; normal iteration boundary
		case errors.Is(err, syscall.EINTR):
		default:
			s.logger.Warn("accept failed", logpkg.Op("accept"), logpkg.Err(err))
			time.Sleep(10 * time.Millisecond)
		}
		s.tasks.ReapCompleted()
	}
}

func (s *Server) spawn(ctx context.Context, conn net.Conn) {
	peer := peerIP(conn)
	s.tasks.Go(ctx, worker.KindConn, peer, func(context.Context) error {
		return s.handle(conn, peer)
	})
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Close closes the listener. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	err := s.lis.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func peerIP(conn net.Conn) string {
	if ta, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return ta.IP.String()
	}
	return conn.RemoteAddr().String()
}
