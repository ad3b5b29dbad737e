package api

import (
	"net/http"

	"github.com/openusage/openusage/internal/settings"
)

// SettingsHandler exposes user preferences owned by the host
type SettingsHandler struct {
	shortcut *settings.ShortcutState
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(shortcut *settings.ShortcutState) *SettingsHandler {
	return &SettingsHandler{shortcut: shortcut}
}

// ShortcutRequest is the body of PUT /api/v1/settings/shortcut
type ShortcutRequest struct {
	Shortcut *string `json:"shortcut"`
}

// ShortcutResponse reports the registered shortcut
type ShortcutResponse struct {
	Shortcut *string `json:"shortcut"`
	Changed  bool    `json:"changed,omitempty"`
}

func shortcutValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetShortcut handles GET /api/v1/settings/shortcut
func (h *SettingsHandler) GetShortcut(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, ShortcutResponse{Shortcut: shortcutValue(h.shortcut.Current())})
}

// UpdateShortcut handles PUT /api/v1/settings/shortcut
func (h *SettingsHandler) UpdateShortcut(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ShortcutRequest](w, r)
	if !ok {
		return
	}

	var next string
	if req.Shortcut != nil {
		next = *req.Shortcut
	}

	changed, err := h.shortcut.Update(next)
	if err != nil {
		sendError(w, r, http.StatusUnprocessableEntity, "SHORTCUT_ERROR", err.Error(), nil)
		return
	}
	sendJSON(w, http.StatusOK, ShortcutResponse{
		Shortcut: shortcutValue(h.shortcut.Current()),
		Changed:  changed,
	})
}
