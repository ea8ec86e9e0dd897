package controllers

import (
	"net/http"

	"github.com/rzbill/aesdsocket/internal/runtime"
	"github.com/rzbill/aesdsocket/internal/worker"
)

// TasksController lists live worker tasks.
type TasksController struct {
	rt *runtime.Runtime
}

// NewTasksController creates a new tasks controller.
func NewTasksController(rt *runtime.Runtime) *TasksController {
	return &TasksController{rt: rt}
}

// RegisterRoutes registers /v1/tasks.
func (c *TasksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/tasks", c.handleTasks)
}

func (c *TasksController) handleTasks(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	kind := worker.Kind(r.URL.Query().Get("kind"))
	out := []worker.Info{}
	for _, info := range c.rt.Tasks().Snapshot() {
		if kind == "" || info.Kind == kind {
			out = append(out, info)
		}
	}
	writeJSON(w, map[string]any{"tasks": out, "count": len(out)})
}
