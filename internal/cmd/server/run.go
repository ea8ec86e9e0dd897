package serverrun

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/google/gops/agent"
	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/aesdsocket/internal/config"
	"github.com/rzbill/aesdsocket/internal/daemon"
	"github.com/rzbill/aesdsocket/internal/lifecycle"
	"github.com/rzbill/aesdsocket/internal/runtime"
	grpcserver "github.com/rzbill/aesdsocket/internal/server/grpc"
	httpserver "github.com/rzbill/aesdsocket/internal/server/http"
	tcpserver "github.com/rzbill/aesdsocket/internal/server/tcp"
	"github.com/rzbill/aesdsocket/internal/stamper"
	"github.com/rzbill/aesdsocket/internal/worker"
	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := func() string { return getenv(key) }(); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	Config cfgpkg.Config
	// Daemon detaches into the background once the socket is bound.
	Daemon bool
	// Args are passed to the re-executed child in daemon mode.
	Args []string
	// Gops starts the gops diagnostics agent.
	Gops bool
	// Listener, when set, is used instead of binding Config.Addr.
	Listener net.Listener
	// Logger overrides the logger built from Config.
	Logger logpkg.Logger
	// Ready is called once the server is accepting connections.
	Ready func(addr net.Addr)
}

// Run starts the echo server and blocks until SIGINT/SIGTERM or ctx is
// cancelled. Startup failures are returned before any connection is
// accepted; shutdown failures are logged.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	procLogger := opts.Logger
	if procLogger == nil {
		procLogger = buildLogger(cfg)
	}
	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)
	logger := procLogger.With(logpkg.Component("server"))

	if opts.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warn("gops agent failed", logpkg.Err(err))
		} else {
			defer agent.Close()
		}
	}

	ctl := lifecycle.New(procLogger)
	stopSignals := ctl.WatchSignals()
	defer stopSignals()
	sctx, cancel := ctl.Context(ctx)
	defer cancel()

	// Starting: bind first so address errors surface before detaching.
	l, err := listen(sctx, cfg, opts.Listener)
	if err != nil {
		return err
	}
	if opts.Daemon && !daemon.IsChild() {
		pid, err := daemon.Detach(l, opts.Args)
		_ = l.Close()
		if err != nil {
			return err
		}
		logger.Info("detached", logpkg.Int("pid", pid))
		return nil
	}

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: procLogger})
	if err != nil {
		_ = l.Close()
		return fmt.Errorf("open store: %w", err)
	}
	if daemon.IsChild() {
		if err := daemon.Sanitize(); err != nil {
			logger.Warn("daemon setup incomplete", logpkg.Err(err))
		}
	}

	logger.Info("Starting aesdsocket server",
		logpkg.Str("addr", l.Addr().String()),
		logpkg.Str("data_file", cfg.DataFile),
		logpkg.Str("backend", cfg.Backend),
		logpkg.Str("echo_mode", cfg.EchoMode),
		logpkg.Int("records_per_conn", cfg.RecordsPerConn),
		logpkg.Duration("timer", cfg.TimerInterval()),
	)

	// Admin servers outlive the accept loop so health reports draining.
	auxCtx, stopAux := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAux()
	aux := startAdmin(auxCtx, rt, ctl, cfg, procLogger)

	tasks := rt.Tasks()
	stamp := stamper.New(rt.Store(), stamper.Options{
		Period:   cfg.TimerInterval(),
		Stopping: ctl.ShuttingDown,
		Logger:   procLogger,
	})
	tasks.Go(sctx, worker.KindTimer, "timestamp", stamp.Run)

	perConn := cfg.RecordsPerConn
	if perConn == 0 {
		perConn = tcpserver.KeepOpen
	}
	srv := tcpserver.New(rt.Store(), tasks, ctl, tcpserver.Options{
		RecvBufferBytes: cfg.RecvBufferBytes,
		RecordsPerConn:  perConn,
		IdleTimeout:     cfg.IdleTimeout(),
		ReapInterval:    cfg.ReapInterval(),
		EchoMode:        cfg.EchoMode,
		Logger:          procLogger,
	})

	ctl.SetPhase(lifecycle.PhaseListening)
	if opts.Ready != nil {
		opts.Ready(l.Addr())
	}
	serveErr := srv.Serve(sctx, l)

	// Draining
	ctl.RequestShutdown("accept loop stopped")
	ctl.SetPhase(lifecycle.PhaseDraining)
	if err := srv.Close(); err != nil {
		logger.Warn("close listener failed", logpkg.Err(err))
	}
	failed := 0
	results := tasks.DrainAll()
	for _, res := range results {
		if res.Status == worker.StatusFailed {
			failed++
		}
	}
	logger.Info("workers joined", logpkg.Int("count", len(results)), logpkg.Int("failed", failed))

	stopAux()
	if err := aux.Wait(); err != nil {
		logger.Warn("admin server error", logpkg.Err(err))
	}
	if err := rt.Close(); err != nil {
		logger.Error("destroy store failed", logpkg.Op("destroy"), logpkg.Err(err))
	}
	ctl.SetPhase(lifecycle.PhaseTerminated)
	logger.Info("shutdown complete")
	return serveErr
}

func listen(ctx context.Context, cfg cfgpkg.Config, given net.Listener) (net.Listener, error) {
	switch {
	case given != nil:
		return given, nil
	case daemon.IsChild():
		return daemon.InheritedListener()
	}
	l, err := tcpserver.Listen(ctx, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return l, nil
}

func startAdmin(ctx context.Context, rt *runtime.Runtime, ctl *lifecycle.Controller, cfg cfgpkg.Config, logger logpkg.Logger) *errgroup.Group {
	g, gctx := errgroup.WithContext(ctx)
	if cfg.AdminHTTPAddr != "" {
		hs := httpserver.New(rt, ctl, logger)
		g.Go(func() error {
			if err := hs.ListenAndServe(gctx, cfg.AdminHTTPAddr); err != nil {
				return fmt.Errorf("admin http: %w", err)
			}
			return nil
		})
	}
	if cfg.AdminGRPCAddr != "" {
		gs := grpcserver.New(ctl, logger)
		g.Go(func() error {
			if err := gs.ListenAndServe(gctx, cfg.AdminGRPCAddr); err != nil {
				return fmt.Errorf("admin grpc: %w", err)
			}
			return nil
		})
	}
	return g
}

// buildLogger applies the log settings from cfg. A detached process has no
// console, so console output is replaced with syslog there.
func buildLogger(cfg cfgpkg.Config) logpkg.Logger {
	outputs := splitList(cfg.LogOutput)
	if daemon.IsChild() {
		for i, o := range outputs {
			if o == "console" {
				outputs[i] = "syslog"
			}
		}
	}
	lc := &logpkg.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Outputs:   outputs,
		SyslogTag: getenvDefault("AESD_SYSLOG_TAG", "aesdsocket"),
	}
	procLogger, err := logpkg.ApplyConfig(lc)
	if err != nil {
		// Fallback to a sane default
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(lc.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}), logpkg.WithOutput(logpkg.NewConsoleOutput()))
		procLogger.Warn("log config rejected, using console", logpkg.Err(err))
	}
	return procLogger
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
