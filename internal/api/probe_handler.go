package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openusage/openusage/internal/probe"
)

// ProbeHandler exposes the probe engine commands
type ProbeHandler struct {
	engine *probe.Engine
}

// NewProbeHandler creates a new probe handler
func NewProbeHandler(engine *probe.Engine) *ProbeHandler {
	return &ProbeHandler{engine: engine}
}

// ListPlugins handles GET /api/v1/plugins
func (h *ProbeHandler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	metas, err := h.engine.ListPlugins()
	if handleEngineError(w, r, err) {
		return
	}
	sendJSON(w, http.StatusOK, metas)
}

// GetPlugin handles GET /api/v1/plugins/{id}
func (h *ProbeHandler) GetPlugin(w http.ResponseWriter, r *http.Request) {
	meta, err := h.engine.Plugin(chi.URLParam(r, "id"))
	if handleEngineError(w, r, err) {
		return
	}
	sendJSON(w, http.StatusOK, meta)
}

// StartBatch handles POST /api/v1/probes.
// Results arrive on the event stream; the response only names the batch.
func (h *ProbeHandler) StartBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[probe.BatchRequest](w, r)
	if !ok {
		return
	}

	started, err := h.engine.StartBatch(req)
	if handleEngineError(w, r, err) {
		return
	}
	sendJSON(w, http.StatusAccepted, started)
}
