// Package pebblestore provides a thin wrapper around Pebble with an fsync
// policy, batches and range deletes. It backs the optional embedded-KV
// variant of the shared log.
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
//	if err != nil { /* handle */ }
//	defer db.Close()
//	b := db.NewBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(b)
//	b.Close()
package pebblestore
