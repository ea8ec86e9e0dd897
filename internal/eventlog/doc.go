// Package eventlog implements an append-only byte log on Pebble.
//
// # Overview
//
// Each append becomes one numbered chunk; reading the log concatenates the
// chunks in sequence order. Keys are lexicographically ordered so a single
// range scan yields the whole log:
//   - log/{name}/m           (metadata: lastSeq | size)
//   - log/{name}/e/{seq_be8} (chunks)
//
// Chunks are stored as: payload | crc32c(payload). A chunk and the metadata
// update are committed in one batch, so a reader never observes a partial
// append.
//
//	l, _ := eventlog.OpenLog(db, "aesdsocket")
//	_, _ = l.Append([]byte("hello\n"))
//	all, _ := l.ReadAll()
//	_ = l.Truncate()
package eventlog
