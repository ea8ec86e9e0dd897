// Package id provides a 128-bit, sortable identifier used to key worker tasks.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence], so
// byte-wise comparison preserves creation order. The Generator pins a
// regressing clock to the last seen millisecond and waits for the next
// millisecond when the sequence is exhausted.
//
//	g := id.NewGenerator()
//	taskID := g.Next()
//	_ = taskID.Short() // compact form for log lines
package id
