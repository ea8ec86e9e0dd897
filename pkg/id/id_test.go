package id

import (
	"sync/atomic"
	"testing"
	"time"
)

func fixedClock(ms *atomic.Int64) func() int64 {
	return func() int64 { return ms.Load() }
}

func TestOrderingMonotonic(t *testing.T) {
	var now atomic.Int64
	now.Store(1000)
	g := &Generator{now: fixedClock(&now)}

	a := g.Next()
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a<b: %s %s", a, b)
	}
	if b.Seq() != a.Seq()+1 {
		t.Fatalf("expected consecutive sequences")
	}
}

func TestClockRegressionGuard(t *testing.T) {
	var now atomic.Int64
	now.Store(1000)
	g := &Generator{now: fixedClock(&now)}

	a := g.Next()
	now.Store(900)
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected b>a despite clock regression")
	}
	if b.Time().UnixMilli() != 1000 {
		t.Fatalf("expected pinned ms, got %d", b.Time().UnixMilli())
	}
}

func TestSequenceOverflowWaitsNextMs(t *testing.T) {
	var now atomic.Int64
	now.Store(2000)
	g := &Generator{now: fixedClock(&now)}
	g.lastMs = 2000
	g.sequence = ^uint64(0) - 1

	_ = g.Next()

	done := make(chan ID)
	go func() { done <- g.Next() }()
	time.AfterFunc(10*time.Millisecond, func() { now.Store(2001) })

	select {
	case got := <-done:
		if got.Seq() != 0 || got.Time().UnixMilli() != 2001 {
			t.Fatalf("expected reset sequence at next ms, got %s", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for overflow handling")
	}
}

func TestParseRoundTrip(t *testing.T) {
	g := NewGenerator()
	a := g.Next()
	b, err := Parse(a.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != b {
		t.Fatalf("parse mismatch")
	}
	if _, err := Parse("zz"); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(a.Short()) != 16 {
		t.Fatalf("short form length %d", len(a.Short()))
	}
}
