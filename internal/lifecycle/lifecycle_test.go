package lifecycle

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestPhaseForwardOnly(t *testing.T) {
	c := New(nil)
	var mu sync.Mutex
	var seen []Phase
	c.OnPhase(func(p Phase) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})
	c.SetPhase(PhaseListening)
	c.SetPhase(PhaseDraining)
	c.SetPhase(PhaseListening)
	c.SetPhase(PhaseTerminated)
	if c.Phase() != PhaseTerminated {
		t.Fatalf("phase = %v", c.Phase())
	}
	want := []Phase{PhaseListening, PhaseDraining, PhaseTerminated}
	if len(seen) != len(want) {
		t.Fatalf("hooks saw %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("hooks saw %v want %v", seen, want)
		}
	}
}

func TestRequestShutdownIdempotent(t *testing.T) {
	c := New(nil)
	if c.ShuttingDown() {
		t.Fatalf("flag set before request")
	}
	if !c.RequestShutdown("first") {
		t.Fatalf("first request should win")
	}
	if c.RequestShutdown("second") {
		t.Fatalf("second request should be a no-op")
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("done not closed")
	}
}

func TestContextCancelledOnShutdown(t *testing.T) {
	c := New(nil)
	ctx, cancel := c.Context(context.Background())
	defer cancel()
	c.RequestShutdown("test")
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not cancelled")
	}
}

func TestParentCancelRequestsShutdown(t *testing.T) {
	c := New(nil)
	parent, cancelParent := context.WithCancel(context.Background())
	_, cancel := c.Context(parent)
	defer cancel()
	cancelParent()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatalf("shutdown not requested")
	}
}

func TestWatchSignalsRepeated(t *testing.T) {
	c := New(nil)
	stop := c.WatchSignals(syscall.SIGUSR1)
	defer stop()
	for i := 0; i < 3; i++ {
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
			t.Fatalf("kill: %v", err)
		}
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("signal not observed")
	}
	stop()
	stop()
}

func TestHookMayRegisterHook(t *testing.T) {
	c := New(nil)
	late := make(chan Phase, 1)
	c.OnPhase(func(p Phase) {
		if p == PhaseListening {
			c.OnPhase(func(p Phase) { late <- p })
		}
	})
	c.SetPhase(PhaseListening)
	select {
	case p := <-late:
		t.Fatalf("hook added during %v ran in the same transition", p)
	default:
	}
	c.SetPhase(PhaseDraining)
	if p := <-late; p != PhaseDraining {
		t.Fatalf("late hook saw %v", p)
	}
}
