package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/openusage/openusage/internal/middleware"
	"github.com/openusage/openusage/internal/plugins"
	"github.com/openusage/openusage/internal/probe"
)

// sendJSON sends a JSON response
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// sendError sends a standardized error response
func sendError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	middleware.SendError(w, r, status, code, message, details)
}

// decodeJSON decodes request body with error handling. An empty body decodes to the zero value.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var input T
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, r, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return input, false
	}
	return input, true
}

// handleEngineError sends the response for a request-level engine failure
func handleEngineError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, plugins.ErrPluginNotFound):
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "Plugin not found", nil)
	case errors.Is(err, probe.ErrEngineClosed), errors.Is(err, probe.ErrRegistryUnavailable):
		sendError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error(), nil)
	default:
		sendError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Probe engine error", err.Error())
	}
	return true
}
