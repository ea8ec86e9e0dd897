// Package lifecycle tracks the server phase (starting, listening, draining,
// terminated) and the single shutdown flag set by SIGINT/SIGTERM.
//
// The accept loop and the timestamp task poll ShuttingDown; components that
// need to react to phase changes, such as the gRPC health service, register
// an OnPhase hook.
package lifecycle
