// Package logstore implements the shared, process-lifetime append log that
// every connection worker and the timestamp task write into.
//
// Store guards a Backend with one mutex and exposes only Append, ReadAll,
// AppendAndRead, Reset and Destroy; the backing handle never leaves the
// package. Two backends exist: FileBackend (a single regular file, the
// default) and PebbleBackend (checksummed chunks in an embedded Pebble
// database).
//
//	s := logstore.New(logstore.NewFileBackend("/var/tmp/aesdsocketdata"))
//	if err := s.Reset(); err != nil { /* fatal */ }
//	defer s.Destroy()
//	snapshot, err := s.AppendAndRead([]byte("hello\n"))
package logstore
