package controllers

import (
	"net/http"

	"github.com/rzbill/aesdsocket/internal/query"
	"github.com/rzbill/aesdsocket/internal/runtime"
)

// LogController serves snapshots of the shared log.
type LogController struct {
	rt *runtime.Runtime
}

// NewLogController creates a new log controller.
func NewLogController(rt *runtime.Runtime) *LogController {
	return &LogController{rt: rt}
}

// RegisterRoutes registers /v1/log.
func (c *LogController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/log", c.handleLog)
}

type logResponse struct {
	Size  int          `json:"size"`
	Lines []query.Line `json:"lines"`
}

// handleLog returns the current log content.
//
// Query parameters:
//   - filter: CEL expression over line, index, size, is_timestamp
//   - limit: keep only the last N matching lines
//   - raw=1: return the bytes as text/plain (filter and limit are ignored)
func (c *LogController) handleLog(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	q := r.URL.Query()
	f, err := query.Compile(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := c.rt.Store().ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read log")
		return
	}
	if parseBool(q.Get("raw")) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(data)
		return
	}
	lines := f.Apply(data)
	if limit := parseLimit(q.Get("limit")); limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	if lines == nil {
		lines = []query.Line{}
	}
	writeJSON(w, logResponse{Size: len(data), Lines: lines})
}
