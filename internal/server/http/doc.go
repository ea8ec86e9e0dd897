// Package httpserver provides the admin REST endpoint: health, store
// statistics, the current log (optionally filtered with CEL) and the live
// task table.
//
// Example:
//
//	s := httpserver.New(rt, ctl, logger)
//	_ = s.ListenAndServe(ctx, "127.0.0.1:9080")
//
// Routes:
//
//	GET /v1/healthz
//	GET /v1/stats
//	GET /v1/log?filter=<cel>&limit=<n>&raw=1
//	GET /v1/tasks?kind=conn|timer
package httpserver
