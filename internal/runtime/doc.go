// Package runtime wires config, the shared log store and the task registry
// into a single server instance. It exposes Open/Close and a basic health
// check used by the admin servers.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close() // removes the data file
//	_ = rt.CheckHealth(context.Background())
//	snapshot, _ := rt.Store().AppendAndRead([]byte("hello\n"))
package runtime
