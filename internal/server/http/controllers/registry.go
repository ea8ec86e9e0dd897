package controllers

import (
	"net/http"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
	"github.com/rzbill/aesdsocket/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	log     *LogController
	tasks   *TasksController
}

// NewControllerRegistry creates a new controller registry.
//
// ctl may be nil, in which case health does not report a phase.
func NewControllerRegistry(rt *runtime.Runtime, ctl *lifecycle.Controller) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, ctl),
		log:     NewLogController(rt),
		tasks:   NewTasksController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.log.RegisterRoutes(mux)
	r.tasks.RegisterRoutes(mux)
}
