package controllers

import (
	"net/http"

	"github.com/rzbill/aesdsocket/internal/lifecycle"
	"github.com/rzbill/aesdsocket/internal/runtime"
)

// GeneralController handles health and store statistics.
type GeneralController struct {
	rt  *runtime.Runtime
	ctl *lifecycle.Controller
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, ctl *lifecycle.Controller) *GeneralController {
	return &GeneralController{rt: rt, ctl: ctl}
}

// RegisterRoutes registers /v1/healthz and /v1/stats.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/stats", c.handleStats)
}

// healthResponse is the body of /v1/healthz.
type healthResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
	Size   int64  `json:"size"`
	Tasks  int    `json:"tasks"`
}

// handleHealth returns 200 with status "ok" while the store is usable and
// the server has not started draining, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	resp := healthResponse{Status: "ok", Size: c.rt.Store().Size(), Tasks: c.rt.Tasks().Len()}
	serving := c.rt.CheckHealth(r.Context()) == nil
	if c.ctl != nil {
		phase := c.ctl.Phase()
		resp.Phase = phase.String()
		if phase >= lifecycle.PhaseDraining {
			serving = false
		}
	}
	if !serving {
		resp.Status = "not_serving"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeBody(w, resp)
		return
	}
	writeJSON(w, resp)
}

func (c *GeneralController) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	writeJSON(w, c.rt.Store().Stats())
}
