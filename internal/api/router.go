package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openusage/openusage/internal/middleware"
	"github.com/openusage/openusage/internal/probe"
	"github.com/openusage/openusage/internal/settings"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Engine      *probe.Engine
	Hub         *Hub
	Shortcut    *settings.ShortcutState
	PluginCount func() int
	// AllowedOrigins enables CORS for the UI webview when non-empty
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates and configures the API router
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	if len(deps.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}))
	}

	healthHandler := NewHealthHandler(deps.PluginCount)
	probeHandler := NewProbeHandler(deps.Engine)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/plugins", func(r chi.Router) {
			r.Get("/", probeHandler.ListPlugins)
			r.Get("/{id}", probeHandler.GetPlugin)
		})

		r.Post("/probes", probeHandler.StartBatch)

		if deps.Hub != nil {
			r.Get("/events", deps.Hub.ServeWs)
		}

		if deps.Shortcut != nil {
			settingsHandler := NewSettingsHandler(deps.Shortcut)
			r.Route("/settings", func(r chi.Router) {
				r.Get("/shortcut", settingsHandler.GetShortcut)
				r.Put("/shortcut", settingsHandler.UpdateShortcut)
			})
		}
	})

	return r
}
