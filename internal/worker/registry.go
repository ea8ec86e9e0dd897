package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rzbill/aesdsocket/pkg/id"
	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// ErrDuplicate is returned by Register for a task ID already present.
var ErrDuplicate = errors.New("worker: task already registered")

// Registry tracks every spawned task until it has been joined. The accept
// loop is the only mutator; Snapshot may be called from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[id.ID]*Task
	ids    *id.Generator
	logger logpkg.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logpkg.Logger) *Registry {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return &Registry{
		tasks:  make(map[id.ID]*Task),
		ids:    id.NewGenerator(),
		logger: logger.With(logpkg.Component("worker")),
	}
}

// Register adds an already spawned task.
func (r *Registry) Register(t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.id]; ok {
		return ErrDuplicate
	}
	r.tasks[t.id] = t
	return nil
}

// Go spawns fn and registers the resulting task.
func (r *Registry) Go(ctx context.Context, kind Kind, label string, fn Func) *Task {
	t := Spawn(ctx, r.ids.Next(), kind, label, fn)
	// IDs come from our own generator, so Register cannot collide.
	_ = r.Register(t)
	r.logger.Debug("task started",
		logpkg.Str(logpkg.TaskKey, t.id.Short()),
		logpkg.Str("kind", string(kind)),
		logpkg.Str("label", label))
	return t
}

// ReapCompleted joins and removes every task that is no longer running.
func (r *Registry) ReapCompleted() []Result {
	r.mu.Lock()
	var finished []*Task
	for tid, t := range r.tasks {
		if t.Status() != StatusRunning {
			finished = append(finished, t)
			delete(r.tasks, tid)
		}
	}
	r.mu.Unlock()
	return r.join(finished)
}

// DrainAll joins and removes every remaining task, blocking until each has
// finished.
func (r *Registry) DrainAll() []Result {
	r.mu.Lock()
	all := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		all = append(all, t)
	}
	r.tasks = make(map[id.ID]*Task)
	r.mu.Unlock()
	return r.join(all)
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Snapshot lists registered tasks ordered by ID.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, Info{
			ID:      t.id.String(),
			Kind:    t.kind,
			Label:   t.label,
			Status:  t.Status().String(),
			Started: t.started,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) join(tasks []*Task) []Result {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].id.Compare(tasks[j].id) < 0 })
	results := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		err := t.Join()
		res := Result{
			ID:       t.id,
			Kind:     t.kind,
			Label:    t.label,
			Status:   t.Status(),
			Err:      err,
			Duration: time.Since(t.started),
		}
		fields := []logpkg.Field{
			logpkg.Str(logpkg.TaskKey, t.id.Short()),
			logpkg.Str("kind", string(t.kind)),
			logpkg.Str("status", res.Status.String()),
			logpkg.Duration("elapsed", res.Duration),
		}
		if err != nil {
			r.logger.Debug("task joined", append(fields, logpkg.Err(err))...)
		} else {
			r.logger.Debug("task joined", fields...)
		}
		results = append(results, res)
	}
	return results
}
