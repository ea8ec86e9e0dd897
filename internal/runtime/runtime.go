package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	cfgpkg "github.com/rzbill/aesdsocket/internal/config"
	"github.com/rzbill/aesdsocket/internal/logstore"
	pebblestore "github.com/rzbill/aesdsocket/internal/storage/pebble"
	"github.com/rzbill/aesdsocket/internal/worker"
	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires config, the shared log store and the task registry for one
// server process.
type Runtime struct {
	config cfgpkg.Config
	store  *logstore.Store
	tasks  *worker.Registry
	logger logpkg.Logger

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// Open creates the backing store selected by the config and resets it to
// empty.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	backend, err := newBackend(opts.Config)
	if err != nil {
		return nil, err
	}
	store := logstore.New(backend)
	if err := store.Reset(); err != nil {
		return nil, err
	}
	logger.With(logpkg.Component("runtime")).Info("log store ready",
		logpkg.Str("backend", opts.Config.Backend),
		logpkg.Str("path", opts.Config.DataFile))
	return &Runtime{
		config: opts.Config,
		store:  store,
		tasks:  worker.NewRegistry(logger),
		logger: logger,
	}, nil
}

func newBackend(cfg cfgpkg.Config) (logstore.Backend, error) {
	path, err := filepath.Abs(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("data file: %w", err)
	}
	switch cfg.Backend {
	case "", cfgpkg.BackendFile:
		return logstore.NewFileBackend(path), nil
	case cfgpkg.BackendPebble:
		mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		return logstore.NewPebbleBackend(pebblestore.Options{
			DataDir:       path + ".pebble",
			Fsync:         mode,
			FsyncInterval: cfg.FsyncInterval(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Close destroys the store. Calling it more than once is harmless.
func (r *Runtime) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		err = r.store.Destroy()
	})
	return err
}

// CheckHealth reports whether the store is usable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return errors.New("store destroyed")
	}
	if r.store.Size() < 0 {
		return errors.New("store size invalid")
	}
	return nil
}

// Store returns the shared log store.
func (r *Runtime) Store() *logstore.Store { return r.store }

// Tasks returns the task registry.
func (r *Runtime) Tasks() *worker.Registry { return r.tasks }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
