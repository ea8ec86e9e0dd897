// Package grpcserver exposes the standard gRPC health service
// (grpc.health.v1.Health) for the echo server. The status tracks the
// lifecycle phase so load balancers stop routing once draining begins.
//
// Example:
//
//	s := grpcserver.New(ctl, logger)
//	_ = s.ListenAndServe(ctx, "127.0.0.1:9090")
package grpcserver
