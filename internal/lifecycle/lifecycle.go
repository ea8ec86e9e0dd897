package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// Phase is the server's position in its lifecycle.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseListening
	PhaseDraining
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseListening:
		return "listening"
	case PhaseDraining:
		return "draining"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Controller owns the process-wide shutdown flag and the current phase.
// The flag is set at most once; later requests are no-ops.
type Controller struct {
	phase    atomic.Int32
	shutdown atomic.Bool
	done     chan struct{}

	mu    sync.Mutex
	hooks []func(Phase)

	logger logpkg.Logger
}

// New returns a Controller in PhaseStarting.
func New(logger logpkg.Logger) *Controller {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Controller{
		done:   make(chan struct{}),
		logger: logger.With(logpkg.Component("lifecycle")),
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return Phase(c.phase.Load()) }

// OnPhase registers fn to be called after every phase change.
func (c *Controller) OnPhase(fn func(Phase)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// SetPhase moves to p and runs the registered hooks. Phases only move
// forward; an attempt to go back is ignored.
func (c *Controller) SetPhase(p Phase) {
	for {
		cur := c.phase.Load()
		if int32(p) <= cur {
			return
		}
		if c.phase.CompareAndSwap(cur, int32(p)) {
			break
		}
	}
	c.logger.Info("phase changed", logpkg.Str("phase", p.String()))
	c.mu.Lock()
	hooks := append([]func(Phase){}, c.hooks...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(p)
	}
}

// RequestShutdown sets the shutdown flag. It reports whether this call was
// the one that set it.
func (c *Controller) RequestShutdown(reason string) bool {
	if !c.shutdown.CompareAndSwap(false, true) {
		c.logger.Debug("shutdown already requested", logpkg.Str("reason", reason))
		return false
	}
	c.logger.Info("Caught signal, exiting", logpkg.Str("reason", reason))
	close(c.done)
	return true
}

// ShuttingDown reports whether shutdown has been requested.
func (c *Controller) ShuttingDown() bool { return c.shutdown.Load() }

// Done is closed once shutdown has been requested.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Context returns a child of parent that is cancelled when shutdown is
// requested. Cancellation of parent also requests shutdown.
func (c *Controller) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
			if parent.Err() != nil {
				c.RequestShutdown("context cancelled")
			}
		}
	}()
	return ctx, cancel
}

// WatchSignals requests shutdown on SIGINT or SIGTERM (or the given
// signals). The returned func stops watching.
func (c *Controller) WatchSignals(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				c.RequestShutdown(sig.String())
			case <-quit:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
