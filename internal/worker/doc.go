// Package worker runs background tasks (the timestamp task and one task per
// client connection) and keeps them in a registry until they are joined.
//
// Each Task carries a tri-state completion flag that only its own goroutine
// writes. The accept loop calls ReapCompleted after every iteration to join
// finished tasks, and DrainAll at shutdown to wait for the rest.
package worker
