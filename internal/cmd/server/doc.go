// Package serverrun exposes the Run entrypoint used by the CLI to start the
// echo server. Run owns the lifecycle: bind, optional detach, store reset,
// timestamp task, accept loop, then on SIGINT/SIGTERM close the listener,
// join every worker and remove the data file.
//
// Example:
//
//	cfg := config.Default()
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
//		os.Exit(1)
//	}
package serverrun
