package api

import (
	"net/http"
	"time"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	pluginCount func() int
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pluginCount func() int) *HealthHandler {
	return &HealthHandler{pluginCount: pluginCount}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Plugins   int       `json:"plugins"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}
	if h.pluginCount != nil {
		response.Plugins = h.pluginCount()
	}
	sendJSON(w, http.StatusOK, response)
}
