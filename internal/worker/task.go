package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rzbill/aesdsocket/pkg/id"
)

// Status is a task's completion flag.
type Status int32

const (
	StatusRunning Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Kind distinguishes the two task families.
type Kind string

const (
	KindTimer Kind = "timer"
	KindConn  Kind = "conn"
)

// Func is the body of a task. A nil return marks the task succeeded.
type Func func(ctx context.Context) error

// Task is one unit of background execution. Its status is written exactly
// once, by the task's own goroutine, just before done is closed.
type Task struct {
	id      id.ID
	kind    Kind
	label   string
	started time.Time

	status atomic.Int32
	done   chan struct{}
	err    error
}

// Spawn starts fn on a new goroutine. A panic inside fn is recovered and
// recorded as a failure.
func Spawn(ctx context.Context, tid id.ID, kind Kind, label string, fn Func) *Task {
	t := &Task{
		id:      tid,
		kind:    kind,
		label:   label,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go t.run(ctx, fn)
	return t
}

func (t *Task) run(ctx context.Context, fn Func) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		t.err = err
		if err != nil {
			t.status.Store(int32(StatusFailed))
		} else {
			t.status.Store(int32(StatusSucceeded))
		}
		close(t.done)
	}()
	err = fn(ctx)
}

func (t *Task) ID() id.ID          { return t.id }
func (t *Task) Kind() Kind         { return t.kind }
func (t *Task) Label() string      { return t.label }
func (t *Task) Started() time.Time { return t.started }

// Status reads the completion flag without blocking.
func (t *Task) Status() Status { return Status(t.status.Load()) }

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Join blocks until the task finishes and returns its error.
func (t *Task) Join() error {
	<-t.done
	return t.err
}

// Result describes a joined task.
type Result struct {
	ID       id.ID
	Kind     Kind
	Label    string
	Status   Status
	Err      error
	Duration time.Duration
}

// Info is a point-in-time view of a registered task.
type Info struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Label   string    `json:"label,omitempty"`
	Status  string    `json:"status"`
	Started time.Time `json:"started"`
}
