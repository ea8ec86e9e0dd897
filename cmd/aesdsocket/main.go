package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clientcmd "github.com/rzbill/aesdsocket/internal/cmd/client"
	serverrun "github.com/rzbill/aesdsocket/internal/cmd/server"
	cfgpkg "github.com/rzbill/aesdsocket/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aesdsocket [-d]",
		Short: "Append-and-echo TCP log server",
		Long: "aesdsocket listens on TCP port 9000, appends every newline-terminated record a client sends\n" +
			"to a shared log file and answers with the full log. A timestamp record is appended every 10s.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServer,
	}
	addServerFlags(rootCmd.Flags())

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:          "start",
		Short:        "Start the echo server",
		Aliases:      []string{"run"},
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServer,
	}
	addServerFlags(serverStartCmd.Flags())
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// config print
	configCmd := &cobra.Command{Use: "config", Short: "Configuration commands"}
	configPrintCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	addServerFlags(configPrintCmd.Flags())
	configCmd.AddCommand(configPrintCmd)
	rootCmd.AddCommand(configCmd)

	// client commands
	clientcmd.AddCommands(rootCmd, clientcmd.DefaultBaseURL)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServerFlags(fs *pflag.FlagSet) {
	fs.BoolP("daemon", "d", false, "Run as a daemon after binding the socket")
	fs.String("config", os.Getenv("AESD_CONFIG"), "Config file (.json, .yaml)")
	fs.String("addr", "", "Listen address (default :9000)")
	fs.String("data-file", "", "Log file path (default /var/tmp/aesdsocketdata)")
	fs.String("backend", "", "Store backend: file|pebble")
	fs.String("fsync", "", "Pebble fsync mode: always|interval|never")
	fs.String("echo-mode", "", "Echo critical section: atomic|split")
	fs.Int("records-per-conn", 0, "Records answered per connection; 0 keeps it open")
	fs.Duration("timer", 0, "Timestamp interval (default 10s)")
	fs.String("admin-http", "", "Admin HTTP listen address (disabled if empty)")
	fs.String("admin-grpc", "", "Admin gRPC health listen address (disabled if empty)")
	fs.String("log-level", "", "Log level: debug|info|warn|error")
	fs.String("log-format", "", "Log format: text|json")
	fs.String("log-output", "", "Comma-separated outputs: console,syslog,null,file:<path>")
	fs.Bool("gops", false, "Start the gops diagnostics agent")
}

// resolveConfig layers defaults, the config file, AESD_* variables and
// explicitly set flags, in that order.
func resolveConfig(fs *pflag.FlagSet) (cfgpkg.Config, error) {
	path, _ := fs.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	cfgpkg.FromEnv(&cfg)

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("addr", &cfg.Addr)
	str("data-file", &cfg.DataFile)
	str("backend", &cfg.Backend)
	str("fsync", &cfg.Fsync)
	str("echo-mode", &cfg.EchoMode)
	str("admin-http", &cfg.AdminHTTPAddr)
	str("admin-grpc", &cfg.AdminGRPCAddr)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("log-output", &cfg.LogOutput)
	if fs.Changed("records-per-conn") {
		cfg.RecordsPerConn, _ = fs.GetInt("records-per-conn")
	}
	if fs.Changed("timer") {
		d, _ := fs.GetDuration("timer")
		cfg.TimerIntervalMs = int(d.Milliseconds())
	}
	return cfg, cfg.Validate()
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		return err
	}
	daemonize, _ := cmd.Flags().GetBool("daemon")
	gops, _ := cmd.Flags().GetBool("gops")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := serverrun.Run(ctx, serverrun.Options{
		Config: cfg,
		Daemon: daemonize,
		Args:   os.Args[1:],
		Gops:   gops,
	}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
