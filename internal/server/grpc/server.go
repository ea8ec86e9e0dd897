package grpcserver

import (
	"context"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// Server owns the gRPC server instance and the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger logpkg.Logger

	mu  sync.Mutex
	lis net.Listener
}

// New constructs a gRPC server exposing grpc.health.v1.Health. The served
// status follows ctl: SERVING while listening, NOT_SERVING otherwise.
func New(ctl *lifecycle.Controller, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger.With(logpkg.Component("grpc")),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	setStatus(s.health, ctl.Phase())
	ctl.OnPhase(func(p lifecycle.Phase) { setStatus(s.health, p) })
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()
	s.logger.Info("admin grpc listening", logpkg.Str("addr", l.Addr().String()))
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound address, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	s.health.Shutdown()
	s.grpc.Stop()
}
