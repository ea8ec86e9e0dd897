// Package tcpserver implements the append-and-echo TCP service.
//
// Every accepted connection becomes a worker task. A worker reads chunks of
// at most RecvBufferBytes, appending each to the shared log, until a chunk
// carries a newline. It then appends that chunk and writes the entire log
// back to the client. By default the append and the read happen in one
// critical section (EchoAtomic); EchoSplit releases the lock in between.
//
// The accept loop wakes at least every ReapInterval so finished workers are
// joined even when no client connects.
package tcpserver
